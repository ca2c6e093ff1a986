package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/service"
)

// collections maps URL collection names to request domains.
var collections = map[string]lifecycle.Domain{
	"proposals": lifecycle.DomainProposal,
	"ambulance": lifecycle.DomainAmbulance,
	"court":     lifecycle.DomainCourt,
	"documents": lifecycle.DomainDocument,
}

// collectionOf is the inverse of collections.
func collectionOf(d lifecycle.Domain) string {
	for name, dd := range collections {
		if dd == d {
			return name
		}
	}
	return string(d)
}

const multipartMemory = 8 << 20

func (s *Server) registerRequestRoutes() {
	for name, d := range collections {
		base := "/" + name
		s.handle("GET "+base, s.listRequests(d))
		s.handle("POST "+base, s.idempotent(s.submitRequest(d)))
		s.handle("GET "+base+"/{id}", s.getRequest(d))
		s.handle("PATCH "+base+"/{id}/status", s.updateStatus(d))
		s.handle("PATCH "+base+"/{id}/cancel", s.cancelRequest(d))
		s.handle("DELETE "+base+"/{id}", s.deleteRequest(d))
	}
}

func (s *Server) listRequests(d lifecycle.Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := models.ListFilter{
			UserID:        q.Get("userId"),
			Status:        q.Get("status"),
			ExcludeStatus: q.Get("excludeStatus"),
			Query:         q.Get("q"),
			SortAsc:       strings.EqualFold(q.Get("sort"), "asc"),
			Limit:         parseInt(q.Get("limit"), 0),
		}
		list, err := s.svc.List(r.Context(), actor(r), d, f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.ok(w, http.StatusOK, "", list)
	}
}

func (s *Server) getRequest(d lifecycle.Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := s.svc.Get(r.Context(), actor(r), d, r.PathValue("id"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.ok(w, http.StatusOK, "", req)
	}
}

var submitMessages = map[lifecycle.Domain]string{
	lifecycle.DomainProposal:  "Proposal submitted successfully",
	lifecycle.DomainAmbulance: "Ambulance booking submitted successfully",
	lifecycle.DomainCourt:     "Court reservation submitted successfully",
	lifecycle.DomainDocument:  "Document request submitted successfully",
}

func (s *Server) submitRequest(d lifecycle.Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			req        models.ServiceRequest
			attachment *service.Upload
			err        error
		)
		switch d {
		case lifecycle.DomainProposal:
			var cleanup func()
			req, attachment, cleanup, err = s.decodeProposal(w, r)
			if cleanup != nil {
				defer cleanup()
			}
		case lifecycle.DomainAmbulance:
			b := &models.AmbulanceBooking{}
			req, err = b, readBodyJSON(r, b)
		case lifecycle.DomainCourt:
			c := &models.CourtReservation{}
			req, err = c, readBodyJSON(r, c)
		case lifecycle.DomainDocument:
			doc := &models.DocumentRequest{}
			req, err = doc, readBodyJSON(r, doc)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		created, err := s.svc.Submit(r.Context(), actor(r), req, attachment)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Location", "/"+collectionOf(d)+"/"+created.Base().ID)
		s.ok(w, http.StatusCreated, submitMessages[d], created)
	}
}

// decodeProposal accepts a JSON body or a multipart form with an optional
// "attachment" file.
func (s *Server) decodeProposal(w http.ResponseWriter, r *http.Request) (*models.Proposal, *service.Upload, func(), error) {
	p := &models.Proposal{}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return p, nil, nil, readBodyJSON(r, p)
	}

	if err := s.parseMultipart(w, r); err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	p.Title = r.FormValue("title")
	p.Description = r.FormValue("description")
	p.SubmitterName = r.FormValue("submitterName")
	if v := strings.TrimSpace(r.FormValue("budget")); v != "" {
		budget, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, cleanup, apperrors.NewValidationError("Please correct the highlighted fields",
				map[string]string{"budget": "Budget must be a number"})
		}
		p.Budget = budget
	}

	upload, err := formFile(r, "attachment")
	if err != nil {
		return nil, nil, cleanup, err
	}
	if upload != nil {
		cleanup = func() {
			closeUploads([]service.Upload{*upload})
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return p, upload, cleanup, nil
}

func (s *Server) maxUpload() int64 {
	if s.storage != nil {
		return s.storage.MaxBytes()
	}
	return 10 << 20
}

// parseMultipart bounds the body to the upload limit plus room for the
// text fields.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload()*4+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewPayloadTooLargeError(s.maxUpload())
		}
		return apperrors.NewValidationError("Invalid multipart form", map[string]string{"body": err.Error()})
	}
	return nil
}

func formFile(r *http.Request, field string) (*service.Upload, error) {
	file, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid file", map[string]string{field: err.Error()})
	}
	return uploadOf(field, file, hdr), nil
}

func uploadOf(field string, file multipart.File, hdr *multipart.FileHeader) *service.Upload {
	return &service.Upload{Field: field, Filename: hdr.Filename, Size: hdr.Size, Body: file}
}

func formFiles(r *http.Request, field string) ([]service.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var out []service.Upload
	for _, hdr := range r.MultipartForm.File[field] {
		f, err := hdr.Open()
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid file", map[string]string{field: err.Error()})
		}
		out = append(out, *uploadOf(field, f, hdr))
	}
	return out, nil
}

func closeUploads(files []service.Upload) {
	for _, f := range files {
		if c, ok := f.Body.(multipart.File); ok {
			_ = c.Close()
		}
	}
}

func (s *Server) updateStatus(d lifecycle.Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var upd models.StatusUpdate
		if err := readBodyJSON(r, &upd); err != nil {
			s.fail(w, r, err)
			return
		}
		updated, err := s.svc.UpdateStatus(r.Context(), actor(r), d, r.PathValue("id"), upd)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.ok(w, http.StatusOK, "Status updated", updated)
	}
}

func (s *Server) cancelRequest(d lifecycle.Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.CancelRequest
		if err := readBodyJSON(r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
		cancelled, err := s.svc.Cancel(r.Context(), actor(r), d, r.PathValue("id"), in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.ok(w, http.StatusOK, "Request cancelled", cancelled)
	}
}

func (s *Server) deleteRequest(d lifecycle.Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Delete(r.Context(), actor(r), d, r.PathValue("id")); err != nil {
			s.fail(w, r, err)
			return
		}
		s.ok(w, http.StatusOK, "Deleted", nil)
	}
}

// ==========================
// Court availability
// ==========================

func (s *Server) registerCourtRoutes() {
	s.handle("GET /court-calendar", s.courtCalendar)
	s.handle("GET /court-conflict", s.courtConflict)
}

func (s *Server) courtCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.CourtCalendar(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", events)
}

// Layouts accepted for court-conflict bounds; the second is what an HTML
// datetime-local input sends.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

func parseTime(v string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Server) courtConflict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, okStart := parseTime(q.Get("start"))
	end, okEnd := parseTime(q.Get("end"))
	if !okStart || !okEnd {
		fields := map[string]string{}
		if !okStart {
			fields["start"] = "expected RFC 3339 time"
		}
		if !okEnd {
			fields["end"] = "expected RFC 3339 time"
		}
		s.fail(w, r, apperrors.NewValidationError("Invalid time range", fields))
		return
	}
	conflict, err := s.svc.CourtConflict(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", map[string]bool{"conflict": conflict})
}

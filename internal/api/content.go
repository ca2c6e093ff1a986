package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/models"
	"barangay-portal/internal/service"
)

func (s *Server) registerContentRoutes() {
	s.handle("GET /announcements", s.listAnnouncements)
	s.handle("GET /announcements/{id}", s.getAnnouncement)
	s.handle("POST /announcements", s.idempotent(s.createAnnouncement))
	s.handle("PATCH /announcements/{id}", s.updateAnnouncement)
	s.handle("DELETE /announcements/{id}", s.deleteAnnouncement)

	s.handle("GET /homepage", s.homepage)
	s.handle("PUT /homepage/{section}", s.putHomepageSection)
	s.handle("POST /homepage/carousel", s.addCarouselSlide)
	s.handle("DELETE /homepage/carousel", s.removeCarouselSlide)

	s.handle("POST /contact", s.idempotent(s.submitContact))
}

// ==========================
// Announcements
// ==========================

func (s *Server) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListAnnouncements(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", list)
}

func (s *Server) getAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.GetAnnouncement(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", a)
}

// announcementForm reads the text fields and "attachments" files of a
// multipart announcement form, or a JSON body without files.
func (s *Server) announcementForm(w http.ResponseWriter, r *http.Request) (service.AnnouncementInput, []service.Upload, func(), error) {
	var in service.AnnouncementInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return in, nil, func() {}, readBodyJSON(r, &in)
	}
	if err := s.parseMultipart(w, r); err != nil {
		return in, nil, func() {}, err
	}
	in.Title = r.FormValue("title")
	in.Content = r.FormValue("content")
	in.Category = r.FormValue("category")
	in.RemoveAttachments = r.MultipartForm.Value["removeAttachments"]

	files, err := formFiles(r, "attachments")
	cleanup := func() {
		closeUploads(files)
		_ = r.MultipartForm.RemoveAll()
	}
	return in, files, cleanup, err
}

func (s *Server) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	in, files, cleanup, err := s.announcementForm(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.CreateAnnouncement(r.Context(), actor(r), in, files)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Announcement posted", a)
}

func (s *Server) updateAnnouncement(w http.ResponseWriter, r *http.Request) {
	in, files, cleanup, err := s.announcementForm(w, r)
	defer cleanup()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.UpdateAnnouncement(r.Context(), actor(r), r.PathValue("id"), in, files)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Announcement updated", a)
}

func (s *Server) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAnnouncement(r.Context(), actor(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Announcement deleted", nil)
}

// ==========================
// Homepage
// ==========================

func (s *Server) homepage(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Homepage(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", page)
}

// putHomepageSection stores the request body as the section content.
func (s *Server) putHomepageSection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		s.fail(w, r, apperrors.NewValidationError("Could not read request body", nil))
		return
	}
	if len(body) > maxJSONBody {
		s.fail(w, r, apperrors.NewPayloadTooLargeError(maxJSONBody))
		return
	}
	section := r.PathValue("section")
	if err := s.svc.PutHomepageSection(r.Context(), actor(r), section, json.RawMessage(body)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Homepage updated", map[string]json.RawMessage{section: body})
}

func (s *Server) addCarouselSlide(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	img, err := formFile(r, "image")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if img == nil {
		s.fail(w, r, apperrors.NewValidationError("Please choose an image", map[string]string{"image": "This field is required"}))
		return
	}
	defer closeUploads([]service.Upload{*img})

	var index *int
	if v := strings.TrimSpace(r.FormValue("index")); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, apperrors.NewValidationError("Invalid slide index", map[string]string{"index": "must be a number"}))
			return
		}
		index = &i
	}

	slides, err := s.svc.AddCarouselSlide(r.Context(), actor(r), *img, r.FormValue("caption"), index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status, msg := http.StatusCreated, "Slide added"
	if index != nil {
		status, msg = http.StatusOK, "Slide replaced"
	}
	s.ok(w, status, msg, slides)
}

func (s *Server) removeCarouselSlide(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		s.fail(w, r, apperrors.NewValidationError("Invalid slide index", map[string]string{"index": "must be a number"}))
		return
	}
	slides, err := s.svc.RemoveCarouselSlide(r.Context(), actor(r), index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Slide removed", slides)
}

// ==========================
// Contact
// ==========================

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	var in models.ContactMessage
	if err := readBodyJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	msg, err := s.svc.SubmitContact(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Message sent. We will get back to you soon.", msg)
}

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/search"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) registerReportRoutes() {
	s.handle("GET /search", s.search)
	s.handle("GET /export/{file}", s.export)
}

// search maps ?q=&type=&status=&from=&size= onto the request index.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	domain := q.Get("type")
	if d, ok := collections[domain]; ok {
		domain = string(d)
	}
	res, err := s.svc.Search(r.Context(), actor(r), search.Query{
		Text:   q.Get("q"),
		Domain: domain,
		Status: q.Get("status"),
		From:   parseInt(q.Get("from"), 0),
		Size:   parseInt(q.Get("size"), 20),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", res)
}

// export serves /export/<collection>.xlsx.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	name, ok := strings.CutSuffix(file, ".xlsx")
	d, known := collections[name]
	if !ok || !known {
		s.fail(w, r, apperrors.NewNotFoundError("Export", file))
		return
	}
	data, err := s.svc.Export(r.Context(), actor(r), d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, time.Now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

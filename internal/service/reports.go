package service

import (
	"context"
	"errors"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/export"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/search"
)

// Search runs the admin full-text search over indexed requests.
func (s *Service) Search(ctx context.Context, actor *models.Session, q search.Query) (*search.Result, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if s.search == nil {
		return nil, apperrors.NewExternalServiceError("elasticsearch", errors.New("search is disabled"))
	}
	if q.Domain != "" {
		if !lifecycle.IsDomain(lifecycle.Domain(q.Domain)) {
			return nil, apperrors.NewValidationError("Unknown request type", map[string]string{"type": q.Domain})
		}
	}
	res, err := s.search.Search(ctx, q)
	if err != nil {
		if errors.Is(err, search.ErrIndexNotFound) {
			return nil, apperrors.NewIndexNotFoundError("service requests")
		}
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	return res, nil
}

// Export renders every request of d as an xlsx workbook.
func (s *Service) Export(ctx context.Context, actor *models.Session, d lifecycle.Domain) ([]byte, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	rows, err := s.store.ListRequests(ctx, d, models.ListFilter{SortAsc: true})
	if err != nil {
		return nil, storeErr(err, resourceNames[d], "")
	}
	for _, r := range rows {
		models.Present(r)
	}
	data, err := export.Workbook(d, rows)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("requests exported", map[string]interface{}{
		"domain":  d,
		"rows":    len(rows),
		"actorId": actor.UserID,
	})
	return data, nil
}

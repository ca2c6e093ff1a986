package service

import (
	"context"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
)

const monthLayout = "2006-01"

// CourtCalendar returns the reservations that hold the court during month
// ("YYYY-MM", current month when empty).
func (s *Service) CourtCalendar(ctx context.Context, month string) ([]models.CalendarEvent, error) {
	var from time.Time
	if month == "" {
		now := s.now().UTC()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse(monthLayout, month)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid month", map[string]string{"month": "expected YYYY-MM"})
		}
		from = t
	}
	to := from.AddDate(0, 1, 0)

	reservations, err := cached(ctx, s, string(lifecycle.DomainCourt), "calendar:"+from.Format(monthLayout),
		func(ctx context.Context) ([]*models.CourtReservation, error) {
			return s.store.CourtCalendar(ctx, from, to)
		})
	if err != nil {
		return nil, storeErr(err, "Court calendar", month)
	}

	events := make([]models.CalendarEvent, 0, len(reservations))
	for _, r := range reservations {
		title := r.Purpose
		if r.ReserverName != "" {
			title += " (" + r.ReserverName + ")"
		}
		events = append(events, models.CalendarEvent{
			ID:     r.ID,
			Title:  title,
			Start:  r.StartTime,
			End:    r.EndTime,
			Status: r.Status,
			Color:  lifecycle.Display(lifecycle.DomainCourt, r.Status).Color,
		})
	}
	return events, nil
}

// CourtConflict reports whether [start, end) overlaps an active reservation.
func (s *Service) CourtConflict(ctx context.Context, start, end time.Time) (bool, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return false, apperrors.NewValidationError("Invalid time range", map[string]string{
			"end": "End time must be after start time",
		})
	}
	conflict, err := s.store.HasCourtConflict(ctx, start, end, "")
	if err != nil {
		return false, storeErr(err, "Court reservation", "")
	}
	return conflict, nil
}

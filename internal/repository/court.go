package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barangay-portal/internal/common/database"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
)

// courtLockKey serializes conflict check and insert across API replicas.
const courtLockKey = 4201

const overlapSQL = `
	SELECT EXISTS(
		SELECT 1 FROM court_reservations
		WHERE status IN ('pending', 'approved')
		  AND start_time < $2 AND end_time > $1
		  AND id <> $3
	)`

// HasCourtConflict reports whether [start, end) overlaps an active
// reservation other than excludeID.
func (r *Repository) HasCourtConflict(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, overlapSQL, start, end, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: court conflict: %v", ErrQueryFailed, err)
	}
	return exists, nil
}

// CreateCourtReservation inserts c unless it overlaps an active reservation.
func (r *Repository) CreateCourtReservation(ctx context.Context, c *models.CourtReservation) error {
	t := tables[lifecycle.DomainCourt]
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", courtLockKey); err != nil {
			return fmt.Errorf("%w: court lock: %v", ErrQueryFailed, err)
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, overlapSQL, c.StartTime, c.EndTime, c.ID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: court conflict: %v", ErrQueryFailed, err)
		}
		if exists {
			return fmt.Errorf("%w: %s to %s", ErrCourtBooked,
				c.StartTime.Format(time.RFC3339), c.EndTime.Format(time.RFC3339))
		}
		return t.insert(ctx, tx, c)
	})
}

// CourtCalendar lists reservations in [from, to) that still hold the court.
func (r *Repository) CourtCalendar(ctx context.Context, from, to time.Time) ([]*models.CourtReservation, error) {
	t := tables[lifecycle.DomainCourt]
	rows, err := r.db.QueryContext(ctx, t.selectSQL()+`
		WHERE status NOT IN ('cancelled', 'rejected')
		  AND start_time < $2 AND end_time > $1
		ORDER BY start_time ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: court calendar: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]*models.CourtReservation, 0)
	for rows.Next() {
		req, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan court: %v", ErrQueryFailed, err)
		}
		out = append(out, req.(*models.CourtReservation))
	}
	return out, rows.Err()
}

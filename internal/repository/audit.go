package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"barangay-portal/internal/models"
)

// InsertAuditEvent appends to audit_log.
func (r *Repository) InsertAuditEvent(ctx context.Context, e *models.AuditEvent) (int64, error) {
	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return 0, fmt.Errorf("%w: encode audit details: %v", ErrInsertFailed, err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.EventType, e.ResourceType, e.ResourceID, e.ActorID, raw, e.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert audit event: %v", ErrInsertFailed, err)
	}
	e.ID = id
	return id, nil
}

// AuditTrail lists events for one resource, oldest first.
func (r *Repository) AuditTrail(ctx context.Context, resourceType, resourceID string) ([]*models.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, resource_type, resource_id, actor_id, details, created_at
		FROM audit_log
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY id ASC`, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: audit trail: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]*models.AuditEvent, 0)
	for rows.Next() {
		e := &models.AuditEvent{}
		var raw []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.ResourceType, &e.ResourceID, &e.ActorID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan audit event: %v", ErrQueryFailed, err)
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &e.Details)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

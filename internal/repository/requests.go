package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
)

const baseColumns = "id, service_id, user_id, status, admin_comment, cancellation_reason, created_at, updated_at"

type tableSpec struct {
	table   string
	columns []string
	// searchable columns matched by ListFilter.Query
	search []string
	scan   func(rowScanner) (models.ServiceRequest, error)
	values func(models.ServiceRequest) ([]interface{}, error)
}

var tables = map[lifecycle.Domain]tableSpec{
	lifecycle.DomainProposal: {
		table:   "proposals",
		columns: []string{"submitter_name", "title", "description", "budget", "attachment_path", "attachment_name"},
		search:  []string{"service_id", "title", "description", "submitter_name"},
		scan: func(s rowScanner) (models.ServiceRequest, error) {
			p := &models.Proposal{}
			err := s.Scan(append(baseDest(&p.RequestBase),
				&p.SubmitterName, &p.Title, &p.Description, &p.Budget, &p.AttachmentPath, &p.AttachmentName)...)
			return p, err
		},
		values: func(r models.ServiceRequest) ([]interface{}, error) {
			p := r.(*models.Proposal)
			return []interface{}{p.SubmitterName, p.Title, p.Description, p.Budget, p.AttachmentPath, p.AttachmentName}, nil
		},
	},
	lifecycle.DomainAmbulance: {
		table: "ambulance_bookings",
		columns: []string{"patient_name", "contact_number", "pickup_address", "destination",
			"booking_date", "purpose", "diesel_cost", "admin_id", "admin_name"},
		search: []string{"service_id", "patient_name", "destination", "pickup_address"},
		scan: func(s rowScanner) (models.ServiceRequest, error) {
			a := &models.AmbulanceBooking{}
			var diesel sql.NullFloat64
			err := s.Scan(append(baseDest(&a.RequestBase),
				&a.PatientName, &a.ContactNumber, &a.PickupAddress, &a.Destination,
				&a.BookingDate, &a.Purpose, &diesel, &a.AdminID, &a.AdminName)...)
			if diesel.Valid {
				v := diesel.Float64
				a.DieselCost = &v
			}
			return a, err
		},
		values: func(r models.ServiceRequest) ([]interface{}, error) {
			a := r.(*models.AmbulanceBooking)
			return []interface{}{a.PatientName, a.ContactNumber, a.PickupAddress, a.Destination,
				a.BookingDate, a.Purpose, nullFloat(a.DieselCost), a.AdminID, a.AdminName}, nil
		},
	},
	lifecycle.DomainCourt: {
		table:   "court_reservations",
		columns: []string{"reserver_name", "contact_number", "purpose", "participants", "start_time", "end_time"},
		search:  []string{"service_id", "reserver_name", "purpose"},
		scan: func(s rowScanner) (models.ServiceRequest, error) {
			c := &models.CourtReservation{}
			err := s.Scan(append(baseDest(&c.RequestBase),
				&c.ReserverName, &c.ContactNumber, &c.Purpose, &c.Participants, &c.StartTime, &c.EndTime)...)
			return c, err
		},
		values: func(r models.ServiceRequest) ([]interface{}, error) {
			c := r.(*models.CourtReservation)
			return []interface{}{c.ReserverName, c.ContactNumber, c.Purpose, c.Participants, c.StartTime, c.EndTime}, nil
		},
	},
	lifecycle.DomainDocument: {
		table:   "document_requests",
		columns: []string{"document_type", "purpose", "form_data"},
		search:  []string{"service_id", "document_type", "purpose"},
		scan: func(s rowScanner) (models.ServiceRequest, error) {
			d := &models.DocumentRequest{}
			var raw []byte
			if err := s.Scan(append(baseDest(&d.RequestBase), &d.DocumentType, &d.Purpose, &raw)...); err != nil {
				return d, err
			}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &d.FormData); err != nil {
					return d, fmt.Errorf("decode form_data: %w", err)
				}
			}
			return d, nil
		},
		values: func(r models.ServiceRequest) ([]interface{}, error) {
			d := r.(*models.DocumentRequest)
			formData := d.FormData
			if formData == nil {
				formData = map[string]interface{}{}
			}
			raw, err := json.Marshal(formData)
			if err != nil {
				return nil, fmt.Errorf("encode form_data: %w", err)
			}
			return []interface{}{d.DocumentType, d.Purpose, raw}, nil
		},
	},
}

func spec(d lifecycle.Domain) (tableSpec, error) {
	t, ok := tables[d]
	if !ok {
		return tableSpec{}, fmt.Errorf("no table for domain %q", d)
	}
	return t, nil
}

func baseDest(b *models.RequestBase) []interface{} {
	return []interface{}{&b.ID, &b.ServiceID, &b.UserID, &b.Status, &b.AdminComment,
		&b.CancellationReason, &b.CreatedAt, &b.UpdatedAt}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (t tableSpec) selectSQL() string {
	return "SELECT " + baseColumns + ", " + strings.Join(t.columns, ", ") + " FROM " + t.table
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (t tableSpec) insert(ctx context.Context, db execer, req models.ServiceRequest) error {
	b := req.Base()
	domainValues, err := t.values(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	args := append([]interface{}{b.ID, b.ServiceID, b.UserID, b.Status, b.AdminComment,
		b.CancellationReason, b.CreatedAt, b.UpdatedAt}, domainValues...)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s)",
		t.table, baseColumns, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "))

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return wrapInsert(err, string(req.Domain()))
	}
	return nil
}

// CreateRequest inserts a new request of any domain.
func (r *Repository) CreateRequest(ctx context.Context, req models.ServiceRequest) error {
	t, err := spec(req.Domain())
	if err != nil {
		return err
	}
	return t.insert(ctx, r.db, req)
}

// GetRequest loads one request by id.
func (r *Repository) GetRequest(ctx context.Context, d lifecycle.Domain, id string) (models.ServiceRequest, error) {
	t, err := spec(d)
	if err != nil {
		return nil, err
	}
	req, err := t.scan(r.db.QueryRowContext(ctx, t.selectSQL()+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, d, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrQueryFailed, d, err)
	}
	return req, nil
}

// ListRequests returns requests matching f, newest first unless f.SortAsc.
func (r *Repository) ListRequests(ctx context.Context, d lifecycle.Domain, f models.ListFilter) ([]models.ServiceRequest, error) {
	t, err := spec(d)
	if err != nil {
		return nil, err
	}

	w := &where{}
	if f.UserID != "" {
		w.add("user_id = $%[1]d", f.UserID)
	}
	if f.Status != "" {
		w.add("status = $%[1]d", f.Status)
	}
	if ex := f.EffectiveExclude(); ex != "" {
		w.add("status <> $%[1]d", ex)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		ors := make([]string, len(t.search))
		for i, col := range t.search {
			ors[i] = col + " ILIKE $%[1]d"
		}
		w.add("("+strings.Join(ors, " OR ")+")", "%"+q+"%")
	}

	order := "DESC"
	if f.SortAsc {
		order = "ASC"
	}
	query := t.selectSQL() + w.String() + " ORDER BY created_at " + order
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrQueryFailed, d, err)
	}
	defer rows.Close()

	out := make([]models.ServiceRequest, 0)
	for rows.Next() {
		req, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrQueryFailed, d, err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", ErrQueryFailed, d, err)
	}
	return out, nil
}

// UpdateStatus applies an admin transition, provided the request is still
// in status from. Ambulance bookings also record the acting admin and, when
// given, the diesel cost.
func (r *Repository) UpdateStatus(ctx context.Context, d lifecycle.Domain, id string, from lifecycle.Status, upd models.StatusUpdate, at time.Time) error {
	t, err := spec(d)
	if err != nil {
		return err
	}

	var res sql.Result
	if d == lifecycle.DomainAmbulance {
		res, err = r.db.ExecContext(ctx, `
			UPDATE ambulance_bookings
			SET status = $1, admin_comment = $2, admin_id = $3, admin_name = $4,
			    diesel_cost = COALESCE($5, diesel_cost), updated_at = $6
			WHERE id = $7 AND status = $8`,
			upd.Status, upd.AdminComment, upd.AdminID, upd.AdminName, nullFloat(upd.DieselCost), at, id, from)
	} else {
		res, err = r.db.ExecContext(ctx,
			"UPDATE "+t.table+" SET status = $1, admin_comment = $2, updated_at = $3 WHERE id = $4 AND status = $5",
			upd.Status, upd.AdminComment, at, id, from)
	}
	if err != nil {
		return fmt.Errorf("%w: update %s status: %v", ErrQueryFailed, d, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrQueryFailed, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+t.table+" WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: check %s: %v", ErrQueryFailed, d, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", ErrNotFound, d, id)
	}
	return fmt.Errorf("%w: %s %s left %s before update", ErrStaleStatus, d, id, from)
}

// CancelRequest marks a resident's own request cancelled, provided it is
// still in status from.
func (r *Repository) CancelRequest(ctx context.Context, d lifecycle.Domain, id, userID string, from lifecycle.Status, reason string, at time.Time) error {
	t, err := spec(d)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+t.table+` SET status = $1, cancellation_reason = $2, updated_at = $3
		 WHERE id = $4 AND user_id = $5 AND status = $6`,
		lifecycle.StatusCancelled, reason, at, id, userID, from)
	if err != nil {
		return fmt.Errorf("%w: cancel %s: %v", ErrQueryFailed, d, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrQueryFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s changed before cancel", ErrStaleStatus, d, id)
	}
	return nil
}

// DeleteRequest hard-deletes a request. Only proposals are exposed for
// deletion by the API.
func (r *Repository) DeleteRequest(ctx context.Context, d lifecycle.Domain, id string) error {
	t, err := spec(d)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+t.table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrQueryFailed, d, err)
	}
	return expectOneRow(res, string(d), id)
}

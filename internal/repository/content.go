package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barangay-portal/internal/models"

	"github.com/lib/pq"
)

// ==========================
// Announcements
// ==========================

const announcementColumns = "id, title, content, category, attachments, posted_by, created_at, updated_at"

func scanAnnouncement(s rowScanner) (*models.Announcement, error) {
	a := &models.Announcement{}
	var attachments pq.StringArray
	err := s.Scan(&a.ID, &a.Title, &a.Content, &a.Category, &attachments, &a.PostedBy, &a.CreatedAt, &a.UpdatedAt)
	a.Attachments = []string(attachments)
	if a.Attachments == nil {
		a.Attachments = []string{}
	}
	return a, err
}

func (r *Repository) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO announcements (`+announcementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		a.ID, a.Title, a.Content, a.Category, pq.Array(a.Attachments), a.PostedBy, a.CreatedAt)
	if err != nil {
		return wrapInsert(err, "announcement")
	}
	return nil
}

func (r *Repository) GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRowContext(ctx,
		"SELECT "+announcementColumns+" FROM announcements WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: announcement %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get announcement: %v", ErrQueryFailed, err)
	}
	return a, nil
}

func (r *Repository) ListAnnouncements(ctx context.Context) ([]*models.Announcement, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+announcementColumns+" FROM announcements ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: list announcements: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]*models.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan announcement: %v", ErrQueryFailed, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateAnnouncement(ctx context.Context, a *models.Announcement) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE announcements
		SET title = $1, content = $2, category = $3, attachments = $4, updated_at = $5
		WHERE id = $6`,
		a.Title, a.Content, a.Category, pq.Array(a.Attachments), a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("%w: update announcement: %v", ErrQueryFailed, err)
	}
	return expectOneRow(res, "announcement", a.ID)
}

func (r *Repository) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%w: delete announcement: %v", ErrQueryFailed, err)
	}
	return expectOneRow(res, "announcement", id)
}

// ==========================
// Homepage
// ==========================

func (r *Repository) GetHomepage(ctx context.Context) (models.Homepage, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT section, content FROM homepage_sections")
	if err != nil {
		return nil, fmt.Errorf("%w: get homepage: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	page := models.Homepage{}
	for rows.Next() {
		var section string
		var content []byte
		if err := rows.Scan(&section, &content); err != nil {
			return nil, fmt.Errorf("%w: scan homepage: %v", ErrQueryFailed, err)
		}
		page[section] = json.RawMessage(content)
	}
	return page, rows.Err()
}

// PutHomepageSection replaces one section, creating it on first write.
func (r *Repository) PutHomepageSection(ctx context.Context, section string, content json.RawMessage, updatedBy string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO homepage_sections (section, content, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (section) DO UPDATE
		SET content = EXCLUDED.content, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
		section, []byte(content), updatedBy, at)
	if err != nil {
		return fmt.Errorf("%w: put homepage %s: %v", ErrQueryFailed, section, err)
	}
	return nil
}

// ==========================
// Contact
// ==========================

func (r *Repository) CreateContactMessage(ctx context.Context, m *models.ContactMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_messages (id, name, email, phone, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Name, m.Email, m.Phone, m.Subject, m.Message, m.CreatedAt)
	if err != nil {
		return wrapInsert(err, "contact message")
	}
	return nil
}

// Package servicetest provides an in-memory service.Store for tests.
package servicetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"
)

// Store keeps everything in maps and returns the same sentinel errors as
// the Postgres repository.
type Store struct {
	mu            sync.Mutex
	requests      map[string]models.ServiceRequest
	users         map[string]*models.User
	announcements map[string]*models.Announcement
	homepage      models.Homepage
	contacts      []*models.ContactMessage
	listCalls     int
}

func New() *Store {
	return &Store{
		requests:      map[string]models.ServiceRequest{},
		users:         map[string]*models.User{},
		announcements: map[string]*models.Announcement{},
		homepage:      models.Homepage{},
	}
}

func reqKey(d lifecycle.Domain, id string) string { return string(d) + "/" + id }

func clone(r models.ServiceRequest) models.ServiceRequest {
	switch v := r.(type) {
	case *models.Proposal:
		c := *v
		return &c
	case *models.AmbulanceBooking:
		c := *v
		return &c
	case *models.CourtReservation:
		c := *v
		return &c
	case *models.DocumentRequest:
		c := *v
		return &c
	}
	panic(fmt.Sprintf("unexpected %T", r))
}

func (m *Store) CreateRequest(_ context.Context, r models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := reqKey(r.Domain(), r.Base().ID)
	if _, ok := m.requests[k]; ok {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, k)
	}
	m.requests[k] = clone(r)
	return nil
}

func (m *Store) GetRequest(_ context.Context, d lifecycle.Domain, id string) (models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[reqKey(d, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", repository.ErrNotFound, d, id)
	}
	return clone(r), nil
}

func (m *Store) ListRequests(_ context.Context, d lifecycle.Domain, f models.ListFilter) ([]models.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := []models.ServiceRequest{}
	for _, r := range m.requests {
		b := r.Base()
		if r.Domain() != d ||
			(f.UserID != "" && b.UserID != f.UserID) ||
			(f.Status != "" && string(b.Status) != f.Status) ||
			(f.EffectiveExclude() != "" && string(b.Status) == f.EffectiveExclude()) ||
			(f.Query != "" && !strings.Contains(strings.ToLower(r.Summary()), strings.ToLower(f.Query))) {
			continue
		}
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if f.SortAsc {
			return out[i].Base().CreatedAt.Before(out[j].Base().CreatedAt)
		}
		return out[i].Base().CreatedAt.After(out[j].Base().CreatedAt)
	})
	return out, nil
}

func (m *Store) UpdateStatus(_ context.Context, d lifecycle.Domain, id string, from lifecycle.Status, upd models.StatusUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[reqKey(d, id)]
	if !ok {
		return fmt.Errorf("%w: %s %s", repository.ErrNotFound, d, id)
	}
	if r.Base().Status != from {
		return fmt.Errorf("%w: %s %s", repository.ErrStaleStatus, d, id)
	}
	b := r.Base()
	b.Status = lifecycle.Status(upd.Status)
	b.AdminComment = upd.AdminComment
	b.UpdatedAt = at
	if a, ok := r.(*models.AmbulanceBooking); ok {
		a.AdminID, a.AdminName = upd.AdminID, upd.AdminName
		if upd.DieselCost != nil {
			v := *upd.DieselCost
			a.DieselCost = &v
		}
	}
	return nil
}

func (m *Store) CancelRequest(_ context.Context, d lifecycle.Domain, id, userID string, from lifecycle.Status, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[reqKey(d, id)]
	if !ok || r.Base().UserID != userID || r.Base().Status != from {
		return fmt.Errorf("%w: %s %s", repository.ErrStaleStatus, d, id)
	}
	b := r.Base()
	b.Status = lifecycle.StatusCancelled
	b.CancellationReason = reason
	b.UpdatedAt = at
	return nil
}

func (m *Store) DeleteRequest(_ context.Context, d lifecycle.Domain, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[reqKey(d, id)]; !ok {
		return fmt.Errorf("%w: %s %s", repository.ErrNotFound, d, id)
	}
	delete(m.requests, reqKey(d, id))
	return nil
}

func (m *Store) conflict(start, end time.Time, excludeID string) bool {
	for _, r := range m.requests {
		c, ok := r.(*models.CourtReservation)
		if !ok || c.ID == excludeID {
			continue
		}
		if (c.Status == lifecycle.StatusPending || c.Status == lifecycle.StatusApproved) && c.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func (m *Store) HasCourtConflict(_ context.Context, start, end time.Time, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflict(start, end, excludeID), nil
}

func (m *Store) CreateCourtReservation(ctx context.Context, c *models.CourtReservation) error {
	m.mu.Lock()
	busy := m.conflict(c.StartTime, c.EndTime, c.ID)
	m.mu.Unlock()
	if busy {
		return fmt.Errorf("%w: overlap", repository.ErrCourtBooked)
	}
	return m.CreateRequest(ctx, c)
}

func (m *Store) CourtCalendar(_ context.Context, from, to time.Time) ([]*models.CourtReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.CourtReservation{}
	for _, r := range m.requests {
		c, ok := r.(*models.CourtReservation)
		if !ok || c.Status == lifecycle.StatusCancelled || c.Status == lifecycle.StatusRejected {
			continue
		}
		if c.Overlaps(from, to) {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *Store) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: user", repository.ErrDuplicate)
		}
	}
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, id)
	}
	c := *u
	return &c, nil
}

func (m *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, email)
}

func (m *Store) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.User{}
	for _, u := range m.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (m *Store) UpdateUserType(_ context.Context, id string, t models.UserType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", repository.ErrNotFound, id)
	}
	u.Type = t
	u.UpdatedAt = at
	return nil
}

func (m *Store) CreateAnnouncement(_ context.Context, a *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	m.announcements[a.ID] = &c
	return nil
}

func (m *Store) GetAnnouncement(_ context.Context, id string) (*models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.announcements[id]
	if !ok {
		return nil, fmt.Errorf("%w: announcement %s", repository.ErrNotFound, id)
	}
	c := *a
	c.Attachments = append([]string(nil), a.Attachments...)
	return &c, nil
}

func (m *Store) ListAnnouncements(_ context.Context) ([]*models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Announcement{}
	for _, a := range m.announcements {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (m *Store) UpdateAnnouncement(_ context.Context, a *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.announcements[a.ID]; !ok {
		return fmt.Errorf("%w: announcement %s", repository.ErrNotFound, a.ID)
	}
	c := *a
	m.announcements[a.ID] = &c
	return nil
}

func (m *Store) DeleteAnnouncement(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.announcements[id]; !ok {
		return fmt.Errorf("%w: announcement %s", repository.ErrNotFound, id)
	}
	delete(m.announcements, id)
	return nil
}

func (m *Store) GetHomepage(_ context.Context) (models.Homepage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := models.Homepage{}
	for k, v := range m.homepage {
		out[k] = v
	}
	return out, nil
}

func (m *Store) PutHomepageSection(_ context.Context, section string, content json.RawMessage, _ string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homepage[section] = append(json.RawMessage(nil), content...)
	return nil
}

func (m *Store) CreateContactMessage(_ context.Context, msg *models.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *msg
	m.contacts = append(m.contacts, &c)
	return nil
}

// ListCalls counts ListRequests calls, which lets tests observe caching.
func (m *Store) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *Store) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *Store) Contacts() []*models.ContactMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ContactMessage(nil), m.contacts...)
}

// Put seeds a request as is.
func (m *Store) Put(r models.ServiceRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[reqKey(r.Domain(), r.Base().ID)] = clone(r)
}

// PutUser seeds an account.
func (m *Store) PutUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	m.users[u.ID] = &c
}

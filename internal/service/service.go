// Package service holds the portal's business rules: request lifecycles,
// accounts and content. HTTP handlers and tests drive it directly.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barangay-portal/internal/cache"
	"barangay-portal/internal/common/camunda"
	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"
	"barangay-portal/internal/search"
	"barangay-portal/internal/session"
	"barangay-portal/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence the service needs; *repository.Repository
// implements it.
type Store interface {
	CreateRequest(ctx context.Context, req models.ServiceRequest) error
	GetRequest(ctx context.Context, d lifecycle.Domain, id string) (models.ServiceRequest, error)
	ListRequests(ctx context.Context, d lifecycle.Domain, f models.ListFilter) ([]models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, d lifecycle.Domain, id string, from lifecycle.Status, upd models.StatusUpdate, at time.Time) error
	CancelRequest(ctx context.Context, d lifecycle.Domain, id, userID string, from lifecycle.Status, reason string, at time.Time) error
	DeleteRequest(ctx context.Context, d lifecycle.Domain, id string) error

	HasCourtConflict(ctx context.Context, start, end time.Time, excludeID string) (bool, error)
	CreateCourtReservation(ctx context.Context, c *models.CourtReservation) error
	CourtCalendar(ctx context.Context, from, to time.Time) ([]*models.CourtReservation, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserType(ctx context.Context, id string, t models.UserType, at time.Time) error

	CreateAnnouncement(ctx context.Context, a *models.Announcement) error
	GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error)
	ListAnnouncements(ctx context.Context) ([]*models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a *models.Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error

	GetHomepage(ctx context.Context) (models.Homepage, error)
	PutHomepageSection(ctx context.Context, section string, content json.RawMessage, updatedBy string, at time.Time) error
	CreateContactMessage(ctx context.Context, m *models.ContactMessage) error
}

// Searcher is implemented by *search.Index.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

// Cache collections.
const (
	collectionAnnouncements = "announcements"
	collectionHomepage      = "homepage"
)

type Deps struct {
	Store      Store
	Cache      *cache.Cache
	Publisher  camunda.Publisher
	Sessions   *session.Store
	Storage    *storage.Storage
	Search     Searcher
	Logger     logger.Logger
	BcryptCost int
	Now        func() time.Time
}

type Service struct {
	store      Store
	cache      *cache.Cache
	publisher  camunda.Publisher
	sessions   *session.Store
	storage    *storage.Storage
	search     Searcher
	logger     logger.Logger
	bcryptCost int
	now        func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		store:      d.Store,
		cache:      d.Cache,
		publisher:  d.Publisher,
		sessions:   d.Sessions,
		storage:    d.Storage,
		search:     d.Search,
		logger:     d.Logger,
		bcryptCost: d.BcryptCost,
		now:        d.Now,
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.publisher == nil {
		s.publisher = camunda.NewNoopPublisher(s.logger)
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// publish hands ev to the workflow engine. The mutation that produced the
// event is already committed, so a failure is logged and not returned.
func (s *Service) publish(ctx context.Context, ev models.LifecycleEvent) {
	ev.EventID = uuid.New().String()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("lifecycle event dropped", map[string]interface{}{
			"eventType":  ev.EventType,
			"resourceId": ev.ResourceID,
			"error":      err.Error(),
		})
	}
}

func (s *Service) invalidate(ctx context.Context, collections ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, collections...); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{
			"collections": collections,
			"error":       err.Error(),
		})
	}
}

// cached reads through the shared cache when one is configured.
func cached[T any](ctx context.Context, s *Service, collection, variant string, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}
	return cache.Load(ctx, s.cache, collection, variant, load)
}

// storeErr converts repository sentinels into application errors.
func storeErr(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError(resource, id)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicateError(fmt.Sprintf("%s already exists", resource))
	case errors.Is(err, repository.ErrCourtBooked):
		return apperrors.NewCourtConflictError(err.Error())
	case errors.Is(err, repository.ErrInsertFailed):
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewQueryExecutionFailedError(resource, err)
}

func isSessionMissing(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound)
}

func isStale(err error) bool {
	return errors.Is(err, repository.ErrStaleStatus)
}

// ==========================
// Authorization
// ==========================

func requireUser(actor *models.Session) error {
	if actor == nil {
		return apperrors.NewUnauthenticatedError("sign in to continue")
	}
	return nil
}

func requireStaff(actor *models.Session) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.Role.IsStaff() {
		return apperrors.NewForbiddenError("staff only")
	}
	return nil
}

func requireSuperAdmin(actor *models.Session) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if actor.Role != models.UserTypeSuperAdmin {
		return apperrors.NewForbiddenError("super admin only")
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/validation"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Signup creates a resident account.
func (s *Service) Signup(ctx context.Context, in models.SignupRequest) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	c := validation.NewChecker().
		Required("firstName", in.FirstName).
		Required("lastName", in.LastName).
		Email("email", in.Email).
		Required("password", in.Password)
	if in.Phone != "" {
		c.Phone("phone", in.Phone)
	}
	if in.Password != "" {
		c.Check(len(in.Password) >= minPasswordLength, "password", "Password must be at least 8 characters")
		c.Check(in.ConfirmPassword == in.Password, "confirmPassword", "Passwords do not match")
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now().UTC()
	u := &models.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: string(hash),
		Type:         models.UserTypeResident,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicateError("An account with this email already exists")
		}
		return nil, storeErr(err, "User", u.Email)
	}

	s.logger.Info("account created", map[string]interface{}{"userId": u.ID})
	return u, nil
}

// Login checks credentials and issues a session.
func (s *Service) Login(ctx context.Context, in models.LoginRequest) (*models.Session, *models.User, error) {
	if err := validation.NewChecker().Required("email", in.Email).Required("password", in.Password).Err(); err != nil {
		return nil, nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.NewAuthenticationError("invalid email or password")
	}
	if err != nil {
		return nil, nil, storeErr(err, "User", "")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, nil, apperrors.NewAuthenticationError("invalid email or password")
	}

	sess, err := s.sessions.Create(ctx, u)
	if err != nil {
		return nil, nil, apperrors.NewCacheFailedError(err)
	}
	s.logger.Info("signed in", map[string]interface{}{"userId": u.ID, "role": u.Type})
	return sess, u, nil
}

// Logout revokes token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperrors.NewCacheFailedError(err)
	}
	return nil
}

// Authenticate resolves a bearer token into its session.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if isSessionMissing(err) {
			return nil, apperrors.NewUnauthenticatedError("session expired or unknown")
		}
		return nil, apperrors.NewCacheFailedError(err)
	}
	return sess, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, actor *models.Session) (*models.User, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, storeErr(err, "User", actor.UserID)
	}
	return u, nil
}

// ListUsers is super admin only.
func (s *Service) ListUsers(ctx context.Context, actor *models.Session) ([]*models.User, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "User", "")
	}
	return users, nil
}

// UpdateUserType changes a role and signs the user out everywhere so the
// new role applies on their next login.
func (s *Service) UpdateUserType(ctx context.Context, actor *models.Session, in models.UpdateTypeRequest) (*models.User, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	c := validation.NewChecker().Required("userId", in.UserID).Required("type", in.Type)
	t, ok := models.ParseUserType(in.Type)
	if in.Type != "" && !ok {
		c.Add("type", "Unsupported value", validation.CodeInvalidEnum)
	}
	c.Check(in.UserID != actor.UserID, "userId", "You cannot change your own role")
	if err := c.Err(); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, storeErr(err, "User", in.UserID)
	}
	from := u.Type
	if err := s.store.UpdateUserType(ctx, in.UserID, t, s.now().UTC()); err != nil {
		return nil, storeErr(err, "User", in.UserID)
	}

	revoked, err := s.sessions.RevokeAll(ctx, in.UserID)
	if err != nil {
		s.logger.Warn("sessions not revoked after role change", map[string]interface{}{
			"userId": in.UserID,
			"error":  err.Error(),
		})
	}

	s.publish(ctx, models.LifecycleEvent{
		EventType:    models.EventRoleChanged,
		ResourceType: "user",
		ResourceID:   in.UserID,
		UserID:       in.UserID,
		ActorID:      actor.UserID,
		FromStatus:   string(from),
		ToStatus:     string(t),
	})
	s.logger.Info("role changed", map[string]interface{}{
		"userId":          in.UserID,
		"from":            from,
		"to":              t,
		"revokedSessions": revoked,
	})

	u.Type = t
	u.UpdatedAt = s.now().UTC()
	return u, nil
}

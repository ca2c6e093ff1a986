package session

import (
	"context"

	"barangay-portal/internal/models"
)

type ctxKey struct{}

// NewContext attaches the authenticated session to ctx.
func NewContext(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by the auth middleware, if any.
func FromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*models.Session)
	return s, ok && s != nil
}

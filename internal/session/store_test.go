package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"barangay-portal/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, ttl), mr
}

var resident = &models.User{ID: "u-1", FirstName: "Juan", LastName: "Dela Cruz", Type: models.UserTypeResident}

func TestCreateAndGet(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	sess, err := s.Create(ctx, resident)
	require.NoError(t, err)
	assert.Len(t, sess.Token, 43)
	assert.True(t, mr.Exists("session:"+sess.Token))
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.Token))

	got, err := s.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, models.UserTypeResident, got.Role)
	assert.Equal(t, "Juan Dela Cruz", got.FullName())
}

func TestGet_UnknownAndExpired(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = s.Get(ctx, "")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	sess, err := s.Create(ctx, resident)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, sess.Token)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestRevoke(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	sess, err := s.Create(ctx, resident)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, sess.Token))
	assert.False(t, mr.Exists("session:"+sess.Token))

	// second logout is a no-op
	assert.NoError(t, s.Revoke(ctx, sess.Token))
}

func TestRevokeAll(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	a, err := s.Create(ctx, resident)
	require.NoError(t, err)
	b, err := s.Create(ctx, resident)
	require.NoError(t, err)
	other, err := s.Create(ctx, &models.User{ID: "u-2", Type: models.UserTypeAdmin})
	require.NoError(t, err)

	n, err := s.RevokeAll(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("session:"+a.Token))
	assert.False(t, mr.Exists("session:"+b.Token))
	assert.True(t, mr.Exists("session:"+other.Token))

	n, err = s.RevokeAll(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), &models.Session{UserID: "u-1", Role: models.UserTypeAdmin})
	s, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-1", s.UserID)
}

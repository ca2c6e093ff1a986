// Package session keeps server-issued login sessions in Redis.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barangay-portal/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
	ErrSessionStore    = errors.New("SESSION_STORE_FAILED")
)

const tokenBytes = 32

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

func sessionKey(token string) string { return "session:" + token }

func userKey(userID string) string { return "user_sessions:" + userID }

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create issues a new session for u.
func (s *Store) Create(ctx context.Context, u *models.User) (*models.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("%w: token: %v", ErrSessionStore, err)
	}
	now := s.now().UTC()
	sess := &models.Session{
		Token:     token,
		UserID:    u.ID,
		Role:      u.Type,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrSessionStore, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(token), raw, s.ttl)
		p.SAdd(ctx, userKey(u.ID), token)
		p.Expire(ctx, userKey(u.ID), s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: save: %v", ErrSessionStore, err)
	}
	return sess, nil
}

// Get resolves a bearer token.
func (s *Store) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrSessionStore, err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSessionStore, err)
	}
	if sess.IsExpired(s.now()) {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Revoke ends one session. Revoking an unknown token is not an error.
func (s *Store) Revoke(ctx context.Context, token string) error {
	sess, err := s.Get(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(token))
		p.SRem(ctx, userKey(sess.UserID), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", ErrSessionStore, err)
	}
	return nil
}

// RevokeAll ends every session of userID and returns how many were live.
func (s *Store) RevokeAll(ctx context.Context, userID string) (int, error) {
	tokens, err := s.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: list sessions: %v", ErrSessionStore, err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, userKey(userID))

	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: delete sessions: %v", ErrSessionStore, err)
	}
	// the index key itself is counted by DEL
	live := int(n) - 1
	if live < 0 {
		live = 0
	}
	return live, nil
}

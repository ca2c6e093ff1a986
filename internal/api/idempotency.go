package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	idempotencyLockTTL    = 30 * time.Second
	maxIdempotencyKey     = 128
)

// idempotency stores the first successful response per (user, route, key)
// and replays it for repeats.
type idempotency struct {
	rdb redis.Cmdable
	ttl time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

func newIdempotency(rdb redis.Cmdable, ttl time.Duration) *idempotency {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &idempotency{rdb: rdb, ttl: ttl}
}

func (i *idempotency) key(r *http.Request, key string) string {
	scope := "anonymous"
	if a := actor(r); a != nil {
		scope = a.UserID
	}
	return fmt.Sprintf("idempotency:%s:%s %s:%s", scope, r.Method, r.URL.Path, key)
}

func (i *idempotency) lookup(ctx context.Context, k string) (*storedResponse, error) {
	raw, err := i.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp storedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type captureWriter struct {
	statusRecorder
	body bytes.Buffer
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.statusRecorder.Write(b)
}

// idempotent wraps a submission handler. Requests without the header pass
// straight through; Redis failures fall back to running the handler.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(headerIdempotency)
		if raw == "" || s.idem == nil {
			next(w, r)
			return
		}
		if len(raw) > maxIdempotencyKey {
			s.fail(w, r, apperrors.NewValidationError("Invalid Idempotency-Key",
				map[string]string{headerIdempotency: fmt.Sprintf("at most %d characters", maxIdempotencyKey)}))
			return
		}

		ctx := r.Context()
		log := logger.FromContext(ctx, s.logger)
		k := s.idem.key(r, raw)

		prev, err := s.idem.lookup(ctx, k)
		if err != nil {
			log.Warn("idempotency lookup failed", map[string]interface{}{"error": err.Error()})
			next(w, r)
			return
		}
		if prev != nil {
			replay(w, prev)
			return
		}

		// The lock is held until the response is stored; a request with the
		// same key may still have finished between the lookup and the SETNX.
		lock := k + ":lock"
		acquired, err := s.idem.rdb.SetNX(ctx, lock, "1", idempotencyLockTTL).Result()
		if err == nil && !acquired {
			s.fail(w, r, apperrors.NewDuplicateError("A request with this Idempotency-Key is still being processed"))
			return
		}
		if err == nil {
			defer s.idem.rdb.Del(context.WithoutCancel(ctx), lock)
			prev, err = s.idem.lookup(ctx, k)
			if err != nil {
				log.Warn("idempotency lookup failed", map[string]interface{}{"error": err.Error()})
			}
			if prev != nil {
				replay(w, prev)
				return
			}
		}

		rec := &captureWriter{statusRecorder: statusRecorder{ResponseWriter: w}}
		next(rec, r)

		status := rec.code()
		if status < 200 || status >= 300 {
			return
		}
		stored, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err == nil {
			err = s.idem.rdb.Set(context.WithoutCancel(ctx), k, stored, s.idem.ttl).Err()
		}
		if err != nil {
			log.Warn("idempotent response not stored", map[string]interface{}{"error": err.Error()})
		}
	}
}

func replay(w http.ResponseWriter, prev *storedResponse) {
	w.Header().Set("Content-Type", prev.ContentType)
	w.Header().Set(headerReplay, "true")
	w.WriteHeader(prev.Status)
	_, _ = w.Write(prev.Body)
}

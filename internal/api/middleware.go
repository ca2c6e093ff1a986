package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/models"
	"barangay-portal/internal/session"

	"github.com/google/uuid"
)

const (
	headerRequestID   = "X-Request-ID"
	headerIdempotency = "Idempotency-Key"
	headerReplay      = "Idempotent-Replay"
)

// requestID tags the request and its logger with an id, reusing the
// caller's X-Request-ID when present.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		w.Header().Set(headerRequestID, id)
		log := s.logger.WithFields(map[string]interface{}{"requestId": id})
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), log)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		logger.FromContext(r.Context(), s.logger).Info("http request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.code(),
			"bytes":    rec.bytes,
			"duration": time.Since(start).String(),
		})
	})
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.FromContext(r.Context(), s.logger).Error("panic recovered", map[string]interface{}{
					"panic": fmt.Sprint(v),
					"stack": string(debug.Stack()),
				})
				writeJSON(w, http.StatusInternalServerError, Fail(apperrors.NewInternalError(fmt.Errorf("%v", v))))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func cors(allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]bool, len(allowed))
	anyOrigin := false
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (anyOrigin || origins[origin]) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", strings.Join([]string{
					"Authorization", "Content-Type", headerIdempotency, headerRequestID,
				}, ", "))
				h.Set("Access-Control-Expose-Headers", strings.Join([]string{headerRequestID, headerReplay}, ", "))
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate resolves the bearer token into a session on the context.
// Unknown or expired tokens leave the request anonymous; handlers that need
// a user reject it.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := s.svc.Authenticate(r.Context(), token)
		if err != nil {
			if apperrors.CodeOf(err) != apperrors.ErrCodeUnauthenticated {
				s.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := session.NewContext(r.Context(), sess)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx, s.logger).WithFields(map[string]interface{}{
			"userId": sess.UserID,
		}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actor is the signed-in session of r, or nil.
func actor(r *http.Request) *models.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

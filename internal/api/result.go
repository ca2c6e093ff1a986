package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
)

// Result is the envelope of every JSON response.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Code    string            `json:"code,omitempty"`
}

func Ok(message string, data interface{}) Result {
	return Result{Success: true, Message: message, Data: data}
}

func Fail(err *apperrors.StandardError) Result {
	return Result{Success: false, Message: err.Message, Errors: err.Fields, Code: string(err.Code)}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) ok(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Ok(message, data))
}

// fail writes err as an envelope. Server-side failures are logged with the
// request-scoped logger.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), s.logger).Error("request failed", map[string]interface{}{
			"code":    stdErr.Code,
			"details": stdErr.Details,
			"path":    r.URL.Path,
		})
	}
	writeJSON(w, status, Fail(stdErr))
}

const maxJSONBody = 1 << 20

// readBodyJSON decodes the request body into out. An empty body leaves out
// untouched.
func readBodyJSON(r *http.Request, out interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return apperrors.NewValidationError("Could not read request body", nil)
	}
	if len(body) > maxJSONBody {
		return apperrors.NewPayloadTooLargeError(maxJSONBody)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperrors.NewValidationError("Invalid request body",
				map[string]string{typeErr.Field: "expected " + typeErr.Type.String()})
		}
		return apperrors.NewValidationError("Invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// Package client is the Go client of the portal REST API. It carries the
// client-side contracts of the resident and admin screens: form validation,
// query building, cancel gating and the submit-reset-redirect flow.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "http://localhost:3002"
	defaultTimeout = 30 * time.Second
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Logger     logger.Logger
}

// Session is the identity the client acts as. It is set by Login and
// cleared by Logout; requests made without one are anonymous.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Valid reports whether the session can still authenticate at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

type Client struct {
	http   *resty.Client
	logger logger.Logger

	mu      sync.RWMutex
	session *Session
}

func New(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoOpLogger()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(o.BaseURL, "/")).
		SetTimeout(o.Timeout).
		SetRetryCount(o.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, logger: o.Logger}
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession restores a previously saved session.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// envelope mirrors the server response wrapper.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
	Code    string            `json:"code"`
}

// Response is a decoded API reply.
type Response struct {
	Status  int
	Message string
	Data    json.RawMessage
	Header  http.Header
}

// Decode unmarshals the data payload into out.
func (r *Response) Decode(out interface{}) error {
	if out == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return apperrors.NewExternalServiceError("portal-api", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if s := c.Session(); s != nil && s.Token != "" {
		req.SetAuthToken(s.Token)
	}
	return req
}

// do sends req and unwraps the envelope. Non-2xx replies become a
// *StandardError carrying the server's code, message and field errors.
func (c *Client) do(req *resty.Request, method, path string) (*Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("portal request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewExternalServiceError("portal-api", err)
	}
	return parseResponse(resp.StatusCode(), resp.Header(), resp.Body())
}

func parseResponse(status int, header http.Header, body []byte) (*Response, error) {
	out := &Response{Status: status, Header: header}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Not an envelope: keep the raw text as the message.
		out.Message = strings.TrimSpace(string(body))
		if out.Message == "" {
			out.Message = http.StatusText(status)
		}
		if status >= 300 {
			return nil, statusError(status, "", out.Message, nil)
		}
		return out, nil
	}

	out.Message = env.Message
	out.Data = env.Data
	if status >= 300 || (!env.Success && env.Code != "") {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, statusError(status, env.Code, msg, env.Errors)
	}
	return out, nil
}

func statusError(status int, code, message string, fields map[string]string) *apperrors.StandardError {
	c := apperrors.ErrorCode(code)
	if c == "" {
		c = codeForStatus(status)
	}
	return &apperrors.StandardError{
		Code:     c,
		Message:  message,
		Fields:   fields,
		Metadata: map[string]interface{}{"status": status},
	}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrCodeValidationFailed
	case http.StatusUnauthorized:
		return apperrors.ErrCodeUnauthenticated
	case http.StatusForbidden:
		return apperrors.ErrCodeForbidden
	case http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case http.StatusConflict:
		return apperrors.ErrCodeDuplicate
	case http.StatusRequestEntityTooLarge:
		return apperrors.ErrCodePayloadTooLarge
	case http.StatusGatewayTimeout:
		return apperrors.ErrCodeTimeout
	default:
		return apperrors.ErrCodeExternalService
	}
}

// StatusOf returns the HTTP status recorded on an error from the client,
// or 0.
func StatusOf(err error) int {
	stdErr, ok := apperrors.As(err)
	if !ok {
		return 0
	}
	if s, ok := stdErr.Metadata["status"].(int); ok {
		return s
	}
	return 0
}

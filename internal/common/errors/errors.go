// Package errors provides the portal's standardized error type, its HTTP
// mapping for the API and its BPMN mapping for workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeNotFound          ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeDuplicate         ErrorCode = "DUPLICATE_RECORD"
	ErrCodeCourtConflict     ErrorCode = "COURT_CONFLICT"
	ErrCodePayloadTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia  ErrorCode = "UNSUPPORTED_MEDIA"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheFailed              ErrorCode = "CACHE_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexFailed       ErrorCode = "INDEX_FAILED"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowPublishFailed  ErrorCode = "WORKFLOW_PUBLISH_FAILED"
	ErrCodeStorageFailed          ErrorCode = "STORAGE_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    map[string]string      `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another *StandardError by code so callers can compare against
// a bare &StandardError{Code: ...}.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newErr(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError carries field-level messages keyed by field name.
func NewValidationError(message string, fields map[string]string) *StandardError {
	e := newErr(ErrCodeValidationFailed, message, "", false)
	e.Fields = fields
	return e
}

func NewUnauthenticatedError(details string) *StandardError {
	return newErr(ErrCodeUnauthenticated, "Authentication required", details, false)
}

func NewForbiddenError(details string) *StandardError {
	return newErr(ErrCodeForbidden, "You are not allowed to perform this action", details, false)
}

func NewNotFoundError(resource, id string) *StandardError {
	return newErr(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), id, false)
}

func NewInvalidTransitionError(from, to string) *StandardError {
	e := newErr(ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot change status from %s to %s", from, to), "", false)
	e.Metadata = map[string]interface{}{"from": from, "to": to}
	return e
}

func NewDuplicateError(message string) *StandardError {
	return newErr(ErrCodeDuplicate, message, "", false)
}

func NewCourtConflictError(details string) *StandardError {
	return newErr(ErrCodeCourtConflict, "The court is already reserved for the selected time", details, false)
}

func NewPayloadTooLargeError(limit int64) *StandardError {
	return newErr(ErrCodePayloadTooLarge,
		fmt.Sprintf("File exceeds the %dMB limit", limit>>20), "", false)
}

func NewUnsupportedMediaError(field, ext string) *StandardError {
	e := newErr(ErrCodeUnsupportedMedia, fmt.Sprintf("File type %q is not allowed", ext), "", false)
	e.Fields = map[string]string{field: "unsupported file type"}
	return e
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newErr(ErrCodeDatabaseConnectionFailed, "Database connection failed", err.Error(), true)
}

func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return newErr(ErrCodeQueryExecutionFailed,
		fmt.Sprintf("Database operation '%s' failed", operation), err.Error(), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newErr(ErrCodeDatabaseInsertFailed, "Failed to save record", err.Error(), true)
}

func NewCacheFailedError(err error) *StandardError {
	return newErr(ErrCodeCacheFailed, "Cache operation failed", err.Error(), true)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newErr(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true)
}

func NewIndexFailedError(err error) *StandardError {
	return newErr(ErrCodeIndexFailed, "Indexing failed", err.Error(), true)
}

func NewIndexNotFoundError(index string) *StandardError {
	return newErr(ErrCodeIndexNotFound, fmt.Sprintf("Index '%s' not found", index), "", false)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newErr(ErrCodeNotificationSendFailed,
		fmt.Sprintf("Failed to send %s notification", channel), err.Error(), true)
}

func NewWorkflowPublishFailedError(err error) *StandardError {
	return newErr(ErrCodeWorkflowPublishFailed, "Failed to publish lifecycle event", err.Error(), true)
}

func NewStorageFailedError(err error) *StandardError {
	return newErr(ErrCodeStorageFailed, "Failed to store file", err.Error(), true)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newErr("BUSINESS_RULE_VIOLATION", message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newErr(ErrCodeExternalService, fmt.Sprintf("External service '%s' failed", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newErr(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newErr(ErrCodeNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newErr(ErrCodeUnauthenticated, "Authentication failed", details, false)
}

func NewInternalError(err error) *StandardError {
	return newErr(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion
// ==========================

// As extracts a *StandardError from a wrapped chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always yields a StandardError; foreign errors become INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	return Normalize(err).Code
}

// HTTPStatus maps an error code to the response status of the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeUnsupportedMedia:
		return http.StatusBadRequest
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeIndexNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidTransition, ErrCodeDuplicate, ErrCodeCourtConflict, "BUSINESS_RULE_VIOLATION":
		return http.StatusConflict
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeExternalService, ErrCodeSearchQueryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeIndexFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeTimeout, ErrCodeCacheFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logs and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTH") || code == ErrCodeForbidden:
		return "AUTH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case code == ErrCodeInvalidTransition || code == ErrCodeCourtConflict || code == ErrCodeDuplicate:
		return "LIFECYCLE"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "MEDIA") || strings.Contains(codeStr, "PAYLOAD"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

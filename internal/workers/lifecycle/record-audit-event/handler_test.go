// internal/workers/lifecycle/record-audit-event/handler_test.go
package recordauditevent

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(&Config{Timeout: 5 * time.Second}, repository.New(db), logger.NewTestLogger(t)), mock
}

func TestHandler_Execute_InsertsAuditRow(t *testing.T) {
	h, mock := newTestHandler(t)
	at := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO audit_log").
		WithArgs(models.EventStatusChanged, "ambulance", "a-1", "admin-7", sqlmock.AnyArg(), at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(88)))

	out, err := h.Execute(context.Background(), &Input{
		EventID:      "evt-1",
		EventType:    models.EventStatusChanged,
		ResourceType: "ambulance",
		ResourceID:   "a-1",
		ActorID:      "admin-7",
		FromStatus:   "pending",
		ToStatus:     "booked",
		OccurredAt:   at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(88), out.AuditID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertFailureIsRetryable(t *testing.T) {
	h, mock := newTestHandler(t)
	mock.ExpectQuery("INSERT INTO audit_log").WillReturnError(errors.New("connection reset"))

	_, err := h.Execute(context.Background(), &Input{
		EventType: models.EventSubmitted, ResourceType: "court", ResourceID: "c-1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseInsertFailed, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryableErrorCode(apperrors.CodeOf(err)))
}

func TestHandler_Execute_IncompleteEvent(t *testing.T) {
	h, mock := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{EventType: models.EventSubmitted})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetails_SkipsEmptyFields(t *testing.T) {
	d := details(&Input{
		EventID:  "evt-2",
		ToStatus: "cancelled",
		Comment:  "Cancelled by admin",
		Metadata: map[string]interface{}{"adminName": "Kap. Santos"},
	})
	assert.Equal(t, "cancelled", d["toStatus"])
	assert.Equal(t, "Kap. Santos", d["adminName"])
	assert.NotContains(t, d, "fromStatus")
}

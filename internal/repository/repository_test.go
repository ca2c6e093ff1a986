package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

var (
	fixedTime = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	baseCols  = []string{"id", "service_id", "user_id", "status", "admin_comment", "cancellation_reason", "created_at", "updated_at"}
)

func proposalRows() *sqlmock.Rows {
	cols := append(append([]string{}, baseCols...),
		"submitter_name", "title", "description", "budget", "attachment_path", "attachment_name")
	return sqlmock.NewRows(cols)
}

// ==========================
// Requests
// ==========================

func TestCreateRequest_Proposal(t *testing.T) {
	repo, mock := newMockRepo(t)

	p := &models.Proposal{
		RequestBase: models.RequestBase{
			ID: "p-1", ServiceID: "PRP-20260504-A1B2C3", UserID: "u-1",
			Status: lifecycle.StatusPending, CreatedAt: fixedTime, UpdatedAt: fixedTime,
		},
		SubmitterName: "Juan Dela Cruz",
		Title:         "Solar street lights",
		Description:   "Install 20 solar lights on Purok 3",
		Budget:        150000,
	}

	mock.ExpectExec(`INSERT INTO proposals`).
		WithArgs("p-1", "PRP-20260504-A1B2C3", "u-1", "pending", "", "", fixedTime, fixedTime,
			"Juan Dela Cruz", "Solar street lights", "Install 20 solar lights on Purok 3", float64(150000), "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreateRequest(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequest_DuplicateServiceID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO document_requests`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateRequest(context.Background(), &models.DocumentRequest{DocumentType: "fencing_permit"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequest_DocumentEncodesFormData(t *testing.T) {
	repo, mock := newMockRepo(t)

	formData := map[string]interface{}{"propertyArea": float64(170), "areaUnit": "square_meters"}
	raw, _ := json.Marshal(formData)

	mock.ExpectExec(`INSERT INTO document_requests`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "fencing_permit", "", raw).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRequest(context.Background(), &models.DocumentRequest{
		DocumentType: "fencing_permit", FormData: formData,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRequest_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM proposals WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRequest(context.Background(), lifecycle.DomainProposal, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRequest_AmbulanceNullDiesel(t *testing.T) {
	repo, mock := newMockRepo(t)

	cols := append(append([]string{}, baseCols...), "patient_name", "contact_number", "pickup_address",
		"destination", "booking_date", "purpose", "diesel_cost", "admin_id", "admin_name")
	mock.ExpectQuery(`FROM ambulance_bookings WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"a-1", "AMB-20260504-00AA11", "u-1", "pending", "", "", fixedTime, fixedTime,
			"Maria", "09171234567", "Purok 2", "District Hospital", fixedTime, "checkup", nil, "", ""))

	req, err := repo.GetRequest(context.Background(), lifecycle.DomainAmbulance, "a-1")
	require.NoError(t, err)
	a := req.(*models.AmbulanceBooking)
	assert.Nil(t, a.DieselCost)
	assert.Equal(t, "District Hospital", a.Destination)
	assert.Equal(t, lifecycle.StatusPending, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRequests_Filters(t *testing.T) {
	tests := []struct {
		name    string
		filter  models.ListFilter
		pattern string
		args    []driver.Value
	}{
		{
			name:    "resident own",
			filter:  models.ListFilter{UserID: "u-1"},
			pattern: `FROM proposals WHERE user_id = \$1 ORDER BY created_at DESC`,
			args:    []driver.Value{"u-1"},
		},
		{
			name:    "admin exclude archived",
			filter:  models.ListFilter{ExcludeStatus: "rejected", SortAsc: true},
			pattern: `FROM proposals WHERE status <> \$1 ORDER BY created_at ASC`,
			args:    []driver.Value{"rejected"},
		},
		{
			name:    "explicit status wins over exclude",
			filter:  models.ListFilter{Status: "rejected", ExcludeStatus: "rejected"},
			pattern: `FROM proposals WHERE status = \$1 ORDER BY created_at DESC`,
			args:    []driver.Value{"rejected"},
		},
		{
			name:    "search text",
			filter:  models.ListFilter{Query: "solar"},
			pattern: regexp.QuoteMeta(`WHERE (service_id ILIKE $1 OR title ILIKE $1 OR description ILIKE $1 OR submitter_name ILIKE $1)`),
			args:    []driver.Value{"%solar%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			rows := proposalRows().AddRow("p-1", "PRP-1", "u-1", "pending", "", "", fixedTime, fixedTime,
				"Juan", "Solar", "desc", "1500.50", "", "")
			mock.ExpectQuery(tt.pattern).WithArgs(tt.args...).WillReturnRows(rows)

			out, err := repo.ListRequests(context.Background(), lifecycle.DomainProposal, tt.filter)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, 1500.50, out[0].(*models.Proposal).Budget)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateStatus_AmbulanceRecordsAdmin(t *testing.T) {
	repo, mock := newMockRepo(t)
	cost := 850.0

	mock.ExpectExec(`UPDATE ambulance_bookings`).
		WithArgs("needs_approval", "Please confirm", "admin-1", "Ana Admin",
			sql.NullFloat64{Float64: cost, Valid: true}, fixedTime, "a-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), lifecycle.DomainAmbulance, "a-1", lifecycle.StatusPending, models.StatusUpdate{
		Status: "needs_approval", AdminComment: "Please confirm", AdminID: "admin-1",
		AdminName: "Ana Admin", DieselCost: &cost,
	}, fixedTime)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE court_reservations SET status`).
		WithArgs("approved", "", fixedTime, "c-404", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM court_reservations WHERE id = $1)`)).
		WithArgs("c-404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.UpdateStatus(context.Background(), lifecycle.DomainCourt, "c-404", lifecycle.StatusPending,
		models.StatusUpdate{Status: "approved"}, fixedTime)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_StatusMovedOn(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE proposals SET status = \$1, admin_comment = \$2, updated_at = \$3 WHERE id = \$4 AND status = \$5`).
		WithArgs("considered", "", fixedTime, "p-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateStatus(context.Background(), lifecycle.DomainProposal, "p-1", lifecycle.StatusPending,
		models.StatusUpdate{Status: "considered"}, fixedTime)
	assert.True(t, errors.Is(err, ErrStaleStatus))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRequest_StaleStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE proposals SET status`).
		WithArgs("cancelled", "changed my mind", fixedTime, "p-1", "u-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CancelRequest(context.Background(), lifecycle.DomainProposal, "p-1", "u-1",
		lifecycle.StatusPending, "changed my mind", fixedTime)
	assert.True(t, errors.Is(err, ErrStaleStatus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRequest(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM proposals WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteRequest(context.Background(), lifecycle.DomainProposal, "p-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Court
// ==========================

func TestCreateCourtReservation_Conflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	c := &models.CourtReservation{
		RequestBase: models.RequestBase{ID: "c-1"},
		StartTime:   fixedTime, EndTime: fixedTime.Add(2 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(courtLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(c.StartTime, c.EndTime, "c-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.CreateCourtReservation(context.Background(), c)
	assert.True(t, errors.Is(err, ErrCourtBooked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCourtReservation_Success(t *testing.T) {
	repo, mock := newMockRepo(t)
	c := &models.CourtReservation{
		RequestBase:  models.RequestBase{ID: "c-1", Status: lifecycle.StatusPending},
		ReserverName: "Liga ng Kabataan", Purpose: "Basketball league", Participants: 20,
		StartTime: fixedTime, EndTime: fixedTime.Add(2 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO court_reservations`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateCourtReservation(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasCourtConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	end := fixedTime.Add(time.Hour)

	mock.ExpectQuery(`status IN \('pending', 'approved'\)`).
		WithArgs(fixedTime, end, "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	conflict, err := repo.HasCourtConflict(context.Background(), fixedTime, end, "")
	require.NoError(t, err)
	assert.False(t, conflict)
}

// ==========================
// Users
// ==========================

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u-1", "Juan", "Dela Cruz", "juan@example.com", "", "", "hash", "resident", fixedTime).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	err := repo.CreateUser(context.Background(), &models.User{
		ID: "u-1", FirstName: "Juan", LastName: "Dela Cruz", Email: "Juan@Example.com",
		PasswordHash: "hash", Type: models.UserTypeResident, CreatedAt: fixedTime,
	})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_Lowercases(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "phone", "address",
			"password_hash", "type", "created_at", "updated_at"}).
			AddRow("u-2", "Ana", "Reyes", "ana@example.com", "09171234567", "", "hash", "admin", fixedTime, fixedTime))

	u, err := repo.GetUserByEmail(context.Background(), "  ANA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeAdmin, u.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Content
// ==========================

func TestGetHomepage(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT section, content FROM homepage_sections`).
		WillReturnRows(sqlmock.NewRows([]string{"section", "content"}).
			AddRow("welcome", []byte(`{"title":"Mabuhay"}`)).
			AddRow("hotlines", []byte(`[{"name":"Fire","number":"160"}]`)))

	page, err := repo.GetHomepage(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Mabuhay"}`, string(page["welcome"]))
	assert.Len(t, page, 2)
}

func TestPutHomepageSection_Upserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`ON CONFLICT \(section\) DO UPDATE`).
		WithArgs("about", []byte(`{"text":"x"}`), "admin-1", fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.PutHomepageSection(context.Background(), "about", json.RawMessage(`{"text":"x"}`), "admin-1", fixedTime)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAuditEvent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO audit_log`).
		WithArgs("request_submitted", "proposal", "p-1", "u-1", []byte(`{}`), fixedTime).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	e := &models.AuditEvent{EventType: "request_submitted", ResourceType: "proposal",
		ResourceID: "p-1", ActorID: "u-1", CreatedAt: fixedTime}
	id, err := repo.InsertAuditEvent(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), e.ID)
}

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"barangay-portal/internal/api"
	"barangay-portal/internal/cache"
	"barangay-portal/internal/common/config"
	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/service"
	"barangay-portal/internal/service/servicetest"
	"barangay-portal/internal/session"
	"barangay-portal/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ==========================
// Harness
// ==========================

type portal struct {
	url   string
	store *servicetest.Store
}

// newPortal serves the real API over an in-memory store.
func newPortal(t *testing.T) *portal {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewTestLogger(t)
	store := servicetest.New()
	files := storage.New(afero.NewMemMapFs(), config.UploadConfig{})
	svc := service.New(service.Deps{
		Store:      store,
		Cache:      cache.New(rdb, config.CacheConfig{Enabled: true}, log),
		Sessions:   session.NewStore(rdb, time.Hour),
		Storage:    files,
		Logger:     log,
		BcryptCost: bcrypt.MinCost,
	})
	srv := httptest.NewServer(api.NewServer(api.Options{
		Service: svc, Storage: files, Redis: rdb, Logger: log,
	}).Handler())
	t.Cleanup(srv.Close)
	return &portal{url: srv.URL, store: store}
}

func (p *portal) seedUser(t *testing.T, id, email, password string, role models.UserType) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	p.store.PutUser(&models.User{
		ID: id, FirstName: "Test", LastName: string(role), Email: email,
		PasswordHash: string(hash), Type: role,
	})
}

func (p *portal) client(t *testing.T, email, password string) *Client {
	t.Helper()
	c := New(Options{BaseURL: p.url, Timeout: 5 * time.Second, Logger: logger.NewTestLogger(t)})
	_, err := c.Login(context.Background(), email, password)
	require.NoError(t, err)
	return c
}

// stub records every request it receives and answers with reply.
type stub struct {
	hits   atomic.Int32
	method string
	path   string
	header http.Header
	body   []byte
}

func newStub(t *testing.T, status int, contentType, reply string) (*stub, *Client) {
	t.Helper()
	s := &stub{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.method, s.path, s.header = r.Method, r.URL.RequestURI(), r.Header.Clone()
		s.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return s, New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func validFencing() *FencingPermitForm {
	f := NewFencingPermitForm()
	f.TaxDeclarationNumber = "TD-2024-00123"
	f.PropertyIdentificationNumber = "PIN-045-221"
	f.PropertyArea = 170
	return f
}

// ==========================
// Forms
// ==========================

func TestFencingPermit_RequestBody(t *testing.T) {
	s, c := newStub(t, http.StatusCreated, "application/json",
		`{"success":true,"message":"Document request submitted successfully","data":{"id":"d-1","serviceId":"DOC-20261016-ABC123","status":"pending","documentType":"fencing_permit"}}`)

	res, err := validFencing().Submit(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, s.method)
	assert.Equal(t, "/documents", s.path)
	assert.NotEmpty(t, s.header.Get("Idempotency-Key"))
	assert.JSONEq(t, `{
		"documentType": "fencing_permit",
		"formData": {
			"taxDeclarationNumber": "TD-2024-00123",
			"propertyIdentificationNumber": "PIN-045-221",
			"propertyArea": 170,
			"areaUnit": "square_meters"
		}
	}`, string(s.body))
	assert.Equal(t, "Document request submitted successfully", res.Message)
	assert.Equal(t, "DOC-20261016-ABC123", res.Record.Base().ServiceID)
}

func TestFencingPermit_EndToEnd(t *testing.T) {
	p := newPortal(t)
	p.seedUser(t, "u-res", "juan@example.com", "s3cretpass", models.UserTypeResident)
	c := p.client(t, "juan@example.com", "s3cretpass")

	form := validFencing()
	res, err := form.Submit(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, TransactionsPath, res.RedirectTo)
	assert.Equal(t, 2*time.Second, res.RedirectAfter)
	assert.Equal(t, NewFencingPermitForm(), form, "form resets to its defaults")

	doc, ok := res.Record.(*models.DocumentRequest)
	require.True(t, ok)
	assert.Equal(t, "fencing_permit", doc.DocumentType)
	assert.Equal(t, lifecycle.StatusPending, doc.Status)
	assert.Equal(t, "u-res", doc.UserID)
	assert.Equal(t, map[string]interface{}{
		"taxDeclarationNumber":         "TD-2024-00123",
		"propertyIdentificationNumber": "PIN-045-221",
		"propertyArea":                 float64(170),
		"areaUnit":                     "square_meters",
	}, doc.FormData)
}

func TestForms_ValidationBlocksSubmission(t *testing.T) {
	s, c := newStub(t, http.StatusCreated, "application/json", `{"success":true}`)
	ctx := context.Background()

	amb := NewAmbulanceForm()
	amb.ContactNumber = "0917-123-4567"
	amb.PickupAddress = "Purok 3"
	amb.Destination = "Provincial Hospital"
	amb.BookingDate = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	_, err := amb.Submit(ctx, c)
	require.Error(t, err)
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
	assert.Equal(t, []string{"patientName"}, keys(stdErr.Fields))
	assert.Equal(t, "Purok 3", amb.PickupAddress, "a failed submit keeps the input")

	_, err = c.SendContact(ctx, models.ContactMessage{Name: "Pedro", Email: "not-an-email", Message: "Hello"})
	stdErr, _ = apperrors.As(err)
	require.NotNil(t, stdErr)
	assert.Contains(t, stdErr.Fields, "email")

	fence := validFencing()
	fence.AreaUnit = "acres"
	fence.TaxDeclarationNumber = "  "
	err = fence.Validate()
	stdErr, _ = apperrors.As(err)
	require.NotNil(t, stdErr)
	assert.Contains(t, stdErr.Fields, "areaUnit")
	assert.Equal(t, "This field is required", stdErr.Fields["taxDeclarationNumber"])

	court := NewCourtForm()
	court.ReserverName, court.ContactNumber, court.Purpose = "SK", "09181234567", "League"
	court.StartTime = time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	court.EndTime = court.StartTime.Add(-time.Hour)
	stdErr, _ = apperrors.As(court.Validate())
	require.NotNil(t, stdErr)
	assert.Contains(t, stdErr.Fields, "endTime")

	assert.Zero(t, s.hits.Load())
}

func TestObjectionForm(t *testing.T) {
	s, c := newStub(t, http.StatusCreated, "application/json",
		`{"success":true,"data":{"id":"d-2","documentType":"objection_certificate","status":"pending"}}`)

	f := NewObjectionForm()
	f.ObjectorName = "Maria Santos"
	f.PropertyAddress = "Lot 4, Purok 2"
	f.ObjectionDetails = "Fence encroaches on the right of way."
	_, err := f.Submit(context.Background(), c)
	require.NoError(t, err)

	var body documentPayload
	require.NoError(t, json.Unmarshal(s.body, &body))
	assert.Equal(t, "objection_certificate", body.DocumentType)
	assert.Equal(t, "Maria Santos", body.FormData["objectorName"])
	assert.Equal(t, ObjectionForm{}, *f)

	f.ObjectorName = "Maria"
	f.PropertyAddress = "Lot 4"
	f.ObjectionDetails = "short"
	stdErr, _ := apperrors.As(f.Validate())
	require.NotNil(t, stdErr)
	assert.Contains(t, stdErr.Fields, "objectionDetails")
}

func TestProposalForm_Attachment(t *testing.T) {
	p := newPortal(t)
	p.seedUser(t, "u-res", "juan@example.com", "s3cretpass", models.UserTypeResident)
	c := p.client(t, "juan@example.com", "s3cretpass")

	dir := t.TempDir()
	pdf := filepath.Join(dir, "plan.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 plan"), 0o600))

	f := NewProposalForm()
	f.Title, f.Description, f.Budget, f.AttachmentPath = "Solar lights", "Install 20 units", 150000, pdf
	res, err := f.Submit(context.Background(), c)
	require.NoError(t, err)

	prop := res.Record.(*models.Proposal)
	assert.Equal(t, "plan.pdf", prop.AttachmentName)
	assert.Equal(t, 150000.0, prop.Budget)
	assert.Equal(t, "Test resident", prop.SubmitterName)
	assert.Equal(t, ProposalForm{}, *f)

	png := filepath.Join(dir, "plan.png")
	require.NoError(t, os.WriteFile(png, []byte("img"), 0o600))
	f.Title, f.Description, f.AttachmentPath = "Again", "With an image", png
	assert.Equal(t, apperrors.ErrCodeUnsupportedMedia, apperrors.CodeOf(f.Validate()))

	f.AttachmentPath = filepath.Join(dir, "missing.pdf")
	stdErr, _ := apperrors.As(f.Validate())
	require.NotNil(t, stdErr)
	assert.Contains(t, stdErr.Fields, "attachment")
}

func TestCourtForm_ConflictPreCheck(t *testing.T) {
	s, c := newStub(t, http.StatusOK, "application/json", `{"success":true,"data":{"conflict":true}}`)

	f := NewCourtForm()
	f.ReserverName, f.ContactNumber, f.Purpose = "SK Council", "09181234567", "League"
	f.StartTime = time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	f.EndTime = f.StartTime.Add(2 * time.Hour)

	_, err := f.Submit(context.Background(), c)
	assert.Equal(t, apperrors.ErrCodeCourtConflict, apperrors.CodeOf(err))
	assert.Equal(t, int32(1), s.hits.Load())
	assert.Equal(t, http.MethodGet, s.method)
	u, err := url.Parse(s.path)
	require.NoError(t, err)
	assert.Equal(t, "/court-conflict", u.Path)
	assert.Equal(t, "2026-10-20T08:00:00Z", u.Query().Get("start"))
	assert.Equal(t, "2026-10-20T10:00:00Z", u.Query().Get("end"))
	assert.Equal(t, "SK Council", f.ReserverName)
}

// ==========================
// Queries
// ==========================

func TestProposalQuery(t *testing.T) {
	tests := []struct {
		name string
		q    ProposalQuery
		want string
	}{
		{"default hides archive", ProposalQuery{}, "excludeStatus=rejected"},
		{"all with archive", ProposalQuery{StatusFilter: "all", ShowArchived: true}, ""},
		{"rejected without archive", ProposalQuery{StatusFilter: "rejected"}, "excludeStatus=rejected&status=rejected"},
		{"search", ProposalQuery{StatusFilter: "pending", ShowArchived: true, Search: "solar"}, "q=solar&status=pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Values().Encode())
		})
	}
}

func TestListProposals_RejectedWithoutArchive(t *testing.T) {
	p := newPortal(t)
	p.seedUser(t, "u-res", "juan@example.com", "s3cretpass", models.UserTypeResident)
	p.seedUser(t, "u-admin", "kap@example.com", "s3cretpass", models.UserTypeAdmin)
	resident := p.client(t, "juan@example.com", "s3cretpass")
	admin := p.client(t, "kap@example.com", "s3cretpass")
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"Solar lights", "Covered court"} {
		f := NewProposalForm()
		f.Title, f.Description = title, "For the barangay"
		res, err := f.Submit(ctx, resident)
		require.NoError(t, err)
		ids = append(ids, res.Record.Base().ID)
	}
	_, err := admin.UpdateStatus(ctx, lifecycle.DomainProposal, ids[0], models.StatusUpdate{Status: "rejected"})
	require.NoError(t, err)

	active, err := admin.ListProposals(ctx, ProposalQuery{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Covered court", active[0].Title)

	rejected, err := admin.ListProposals(ctx, ProposalQuery{StatusFilter: "rejected"})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, ids[0], rejected[0].ID)

	assert.False(t, CanCancel(rejected[0]))
	_, err = resident.Cancel(ctx, lifecycle.DomainProposal, ids[0], "changed my mind")
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, apperrors.CodeOf(err))
	assert.Equal(t, http.StatusConflict, StatusOf(err))

	cancelled, err := resident.Cancel(ctx, lifecycle.DomainProposal, ids[1], "Duplicate")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, cancelled.Base().Status)
}

// ==========================
// Envelope and session
// ==========================

func TestEnvelope_ErrorAndRawFallback(t *testing.T) {
	_, c := newStub(t, http.StatusConflict, "application/json",
		`{"success":false,"message":"Cannot move from completed to cancelled","code":"INVALID_TRANSITION"}`)
	_, err := c.GetRequest(context.Background(), lifecycle.DomainAmbulance, "a-1")
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, stdErr.Code)
	assert.Equal(t, "Cannot move from completed to cancelled", stdErr.Message)

	_, c = newStub(t, http.StatusBadGateway, "text/plain", "upstream down\n")
	_, err = c.GetRequest(context.Background(), lifecycle.DomainAmbulance, "a-1")
	stdErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "upstream down", stdErr.Message)
	assert.Equal(t, apperrors.ErrCodeExternalService, stdErr.Code)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))

	_, c = newStub(t, http.StatusNotFound, "text/plain", "")
	_, err = c.GetRequest(context.Background(), lifecycle.DomainCourt, "c-1")
	stdErr, _ = apperrors.As(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, "Not Found", stdErr.Message)
	assert.Equal(t, apperrors.ErrCodeNotFound, stdErr.Code)
}

func TestSessionLifecycle(t *testing.T) {
	p := newPortal(t)
	p.seedUser(t, "u-res", "juan@example.com", "s3cretpass", models.UserTypeResident)
	ctx := context.Background()

	c := New(Options{BaseURL: p.url})
	_, err := c.Me(ctx)
	assert.Equal(t, apperrors.ErrCodeUnauthenticated, apperrors.CodeOf(err))

	_, err = c.Login(ctx, "juan@example.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Nil(t, c.Session())

	sess, err := c.Login(ctx, "juan@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.True(t, sess.Valid(time.Now()))
	assert.Equal(t, "u-res", sess.User.ID)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", me.Email)

	require.NoError(t, c.Logout(ctx))
	assert.Nil(t, c.Session())

	// the old token no longer works
	c.SetSession(sess)
	_, err = c.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// internal/workers/lifecycle/index-service-request/handler_test.go
package indexservicerequest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"
	"barangay-portal/internal/search"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type esCall struct {
	Method, Path, Body string
}

func newFakeES(t *testing.T, status int) (*search.Index, *[]esCall) {
	t.Helper()
	var mu sync.Mutex
	calls := &[]esCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		*calls = append(*calls, esCall{Method: r.Method, Path: r.URL.Path, Body: string(b)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return search.New(es, "service-requests"), calls
}

type fakeLoader struct {
	reqs map[string]models.ServiceRequest
	err  error
}

func (f *fakeLoader) GetRequest(_ context.Context, d lifecycle.Domain, id string) (models.ServiceRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reqs[string(d)+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", repository.ErrNotFound, d, id)
	}
	return r, nil
}

func sampleCourt() *models.CourtReservation {
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return &models.CourtReservation{
		RequestBase: models.RequestBase{
			ID: "c-1", ServiceID: "CRT-20261016-00FF00", UserID: "u-1",
			Status: lifecycle.StatusApproved, CreatedAt: at, UpdatedAt: at,
		},
		ReserverName: "Pedro Reyes",
		Purpose:      "Inter-purok basketball league",
		StartTime:    at.Add(48 * time.Hour),
		EndTime:      at.Add(50 * time.Hour),
	}
}

func newHandler(t *testing.T, loader RequestLoader, idx Indexer) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, loader, idx, logger.NewTestLogger(t))
}

func TestHandler_Execute_IndexesCurrentState(t *testing.T) {
	idx, calls := newFakeES(t, http.StatusCreated)
	loader := &fakeLoader{reqs: map[string]models.ServiceRequest{"court/c-1": sampleCourt()}}
	h := newHandler(t, loader, idx)

	out, err := h.Execute(context.Background(), &Input{
		EventType: models.EventStatusChanged, ResourceType: "court", ResourceID: "c-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionIndexed, out.Action)
	assert.Equal(t, "court-c-1", out.DocumentID)

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPut, (*calls)[0].Method)
	assert.Equal(t, "/service-requests/_doc/court-c-1", (*calls)[0].Path)
	assert.Contains(t, (*calls)[0].Body, `"status":"approved"`)
}

func TestHandler_Execute_DeletedEventRemoves(t *testing.T) {
	idx, calls := newFakeES(t, http.StatusOK)
	h := newHandler(t, &fakeLoader{}, idx)

	out, err := h.Execute(context.Background(), &Input{
		EventType: models.EventDeleted, ResourceType: "proposal", ResourceID: "p-9",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, out.Action)
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodDelete, (*calls)[0].Method)
}

func TestHandler_Execute_MissingRowRemoves(t *testing.T) {
	idx, calls := newFakeES(t, http.StatusNotFound)
	h := newHandler(t, &fakeLoader{}, idx)

	out, err := h.Execute(context.Background(), &Input{
		EventType: models.EventStatusChanged, ResourceType: "document", ResourceID: "d-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, out.Action)
	assert.Len(t, *calls, 1)
}

func TestHandler_Execute_NonRequestResourceSkipped(t *testing.T) {
	idx, calls := newFakeES(t, http.StatusOK)
	h := newHandler(t, &fakeLoader{}, idx)

	out, err := h.Execute(context.Background(), &Input{
		EventType: models.EventContactReceived, ResourceType: "contact", ResourceID: "m-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, out.Action)
	assert.Empty(t, *calls)
}

func TestHandler_Execute_IndexErrorIsRetryable(t *testing.T) {
	idx, _ := newFakeES(t, http.StatusServiceUnavailable)
	loader := &fakeLoader{reqs: map[string]models.ServiceRequest{"court/c-1": sampleCourt()}}
	h := newHandler(t, loader, idx)

	_, err := h.Execute(context.Background(), &Input{
		EventType: models.EventSubmitted, ResourceType: "court", ResourceID: "c-1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeIndexFailed, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryableErrorCode(apperrors.CodeOf(err)))
}

func TestHandler_Execute_LoadError(t *testing.T) {
	idx, _ := newFakeES(t, http.StatusOK)
	h := newHandler(t, &fakeLoader{err: errors.New("connection refused")}, idx)

	_, err := h.Execute(context.Background(), &Input{
		EventType: models.EventSubmitted, ResourceType: "ambulance", ResourceID: "a-1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.CodeOf(err))
}

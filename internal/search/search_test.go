package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type recorded struct {
	method string
	path   string
	body   string
}

// fakeES answers like an Elasticsearch node and records every request.
func fakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*elasticsearch.Client, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	calls := &[]recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		*calls = append(*calls, recorded{method: r.Method, path: r.URL.Path, body: string(b)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es, calls
}

func sampleProposal() *models.Proposal {
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return &models.Proposal{
		RequestBase: models.RequestBase{
			ID: "p-1", ServiceID: "PRP-20260201-ABC123", UserID: "u-1",
			Status: lifecycle.StatusInReview, CreatedAt: at, UpdatedAt: at,
		},
		SubmitterName: "Juan Dela Cruz",
		Title:         "Solar street lights",
		Description:   "Purok 3 lighting",
	}
}

// ==========================
// Documents and queries
// ==========================

func TestDocumentFrom(t *testing.T) {
	doc := DocumentFrom(sampleProposal())
	assert.Equal(t, "proposal", doc.Domain)
	assert.Equal(t, "in_review", doc.Status)
	assert.Equal(t, "Solar street lights", doc.Title)
	assert.Contains(t, doc.Body, "Juan Dela Cruz")
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(Query{Text: "solar", Domain: "proposal", Status: "pending"})
	raw, err := json.Marshal(q)
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, `"multi_match"`)
	assert.Contains(t, s, `"query":"solar"`)
	assert.Contains(t, s, `{"term":{"domain":"proposal"}}`)
	assert.Contains(t, s, `{"term":{"status":"pending"}}`)

	raw, _ = json.Marshal(BuildQuery(Query{}))
	assert.Contains(t, string(raw), `"match_all"`)
}

// ==========================
// Client calls
// ==========================

func TestUpsert(t *testing.T) {
	es, calls := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	idx := New(es, "service-requests")

	require.NoError(t, idx.Upsert(context.Background(), DocumentFrom(sampleProposal())))
	require.Len(t, *calls, 1)
	assert.Equal(t, "/service-requests/_doc/proposal-p-1", (*calls)[0].path)
	assert.Contains(t, (*calls)[0].body, `"serviceId":"PRP-20260201-ABC123"`)
}

func TestUpsert_ServerError(t *testing.T) {
	es, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})
	err := New(es, "").Upsert(context.Background(), DocumentFrom(sampleProposal()))
	assert.True(t, errors.Is(err, ErrIndexFailed))
}

func TestRemove_MissingIsFine(t *testing.T) {
	es, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})
	assert.NoError(t, New(es, "").Remove(context.Background(), "proposal", "p-1"))
}

func TestSearch(t *testing.T) {
	es, calls := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"took": 4,
			"hits": {
				"total": {"value": 1},
				"hits": [{"_score": 2.5, "_source": {"id":"p-1","serviceId":"PRP-1","domain":"proposal","status":"pending","title":"Solar street lights"}}]
			}
		}`))
	})

	res, err := New(es, "service-requests").Search(context.Background(), Query{Text: "solar", Size: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "PRP-1", res.Hits[0].Document.ServiceID)
	assert.True(t, strings.HasSuffix((*calls)[0].path, "/_search"))
}

func TestSearch_IndexMissing(t *testing.T) {
	es, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	})
	_, err := New(es, "service-requests").Search(context.Background(), Query{Text: "x"})
	assert.True(t, errors.Is(err, ErrIndexNotFound))
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	es, calls := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})

	require.NoError(t, New(es, "service-requests").EnsureIndex(context.Background()))
	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodPut, (*calls)[1].method)
	assert.Contains(t, (*calls)[1].body, `"serviceId"`)
}

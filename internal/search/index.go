// Package search indexes service requests into Elasticsearch and serves the
// admin full-text search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"barangay-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrIndexFailed       = errors.New("INDEX_FAILED")
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

const mapping = `{
	"mappings": {
		"properties": {
			"serviceId":  {"type": "keyword"},
			"domain":     {"type": "keyword"},
			"userId":     {"type": "keyword"},
			"status":     {"type": "keyword"},
			"title":      {"type": "text"},
			"body":       {"type": "text"},
			"createdAt":  {"type": "date"},
			"updatedAt":  {"type": "date"}
		}
	}
}`

// Document is the indexed shape of a service request.
type Document struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"serviceId"`
	Domain    string    `json:"domain"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DocumentFrom flattens a request for indexing.
func DocumentFrom(r models.ServiceRequest) Document {
	b := r.Base()
	doc := Document{
		ID:        b.ID,
		ServiceID: b.ServiceID,
		Domain:    string(r.Domain()),
		UserID:    b.UserID,
		Status:    string(b.Status),
		Title:     r.Summary(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	switch v := r.(type) {
	case *models.Proposal:
		doc.Body = strings.Join([]string{v.Description, v.SubmitterName}, " ")
	case *models.AmbulanceBooking:
		doc.Body = strings.Join([]string{v.PickupAddress, v.Purpose}, " ")
	case *models.CourtReservation:
		doc.Body = v.ReserverName
	case *models.DocumentRequest:
		doc.Body = v.Purpose
	}
	return doc
}

func docID(domain, id string) string { return domain + "-" + id }

type Index struct {
	es    *elasticsearch.Client
	index string
}

func New(es *elasticsearch.Client, index string) *Index {
	if index == "" {
		index = "service-requests"
	}
	return &Index{es: es, index: index}
}

func (i *Index) Name() string { return i.index }

// EnsureIndex creates the index with its mapping when missing.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: exists: %v", ErrIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return fmt.Errorf("%w: create: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return fmt.Errorf("%w: create: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

// Upsert writes doc under a stable id so re-indexing replaces it.
func (i *Index) Upsert(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrIndexFailed, err)
	}
	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: docID(doc.Domain, doc.ID),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s: %s", ErrIndexFailed, res.Status(), readBody(res.Body))
	}
	return nil
}

// Remove deletes a request from the index; a missing document is fine.
func (i *Index) Remove(ctx context.Context, domain, id string) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: docID(domain, id)}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}

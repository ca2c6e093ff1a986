package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Query is an admin search.
type Query struct {
	Text   string
	Domain string
	Status string
	From   int
	Size   int
}

type Hit struct {
	Score    float64  `json:"score"`
	Document Document `json:"document"`
}

type Result struct {
	Total int64 `json:"total"`
	Took  int   `json:"took"`
	Hits  []Hit `json:"hits"`
}

// BuildQuery renders q as an Elasticsearch bool query.
func BuildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"title^3", "serviceId^5", "body"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}
	if q.Domain != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"domain": q.Domain}})
	}
	if q.Status != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"status": q.Status}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must, "filter": filter},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"createdAt": "desc"}},
	}
}

type searchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float64  `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (i *Index) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}
	if q.From < 0 {
		q.From = 0
	}
	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrSearchQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(string(body)),
		From:  &q.From,
		Size:  &q.Size,
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, i.index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	out := &Result{Total: sr.Hits.Total.Value, Took: sr.Took, Hits: make([]Hit, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		out.Hits = append(out.Hits, Hit{Score: h.Score, Document: h.Source})
	}
	return out, nil
}

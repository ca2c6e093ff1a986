// internal/workers/lifecycle/index-service-request/models.go
package indexservicerequest

import "barangay-portal/internal/models"

type Input = models.LifecycleEvent

type Output struct {
	DocumentID string `json:"documentId,omitempty"`
	Action     string `json:"action"` // "indexed", "removed", "skipped"
	IndexedAt  string `json:"indexedAt"`
}

const (
	ActionIndexed = "indexed"
	ActionRemoved = "removed"
	ActionSkipped = "skipped"
)

package models

import "time"

// Lifecycle event types published to the workflow engine.
const (
	EventSubmitted       = "request_submitted"
	EventStatusChanged   = "request_status_changed"
	EventCancelled       = "request_cancelled"
	EventDeleted         = "request_deleted"
	EventContactReceived = "contact_received"
	EventRoleChanged     = "user_role_changed"
)

// LifecycleEvent is the variable payload of a workflow instance. Workers
// decode the same struct.
type LifecycleEvent struct {
	EventID      string                 `json:"eventId"`
	EventType    string                 `json:"eventType"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	ServiceID    string                 `json:"serviceId,omitempty"`
	UserID       string                 `json:"userId,omitempty"`
	ActorID      string                 `json:"actorId,omitempty"`
	FromStatus   string                 `json:"fromStatus,omitempty"`
	ToStatus     string                 `json:"toStatus,omitempty"`
	Comment      string                 `json:"comment,omitempty"`
	Summary      string                 `json:"summary,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt   time.Time              `json:"occurredAt"`
}

type AuditEvent struct {
	ID           int64                  `json:"id"`
	EventType    string                 `json:"eventType"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	ActorID      string                 `json:"actorId,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

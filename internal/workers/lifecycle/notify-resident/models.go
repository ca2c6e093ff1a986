// internal/workers/lifecycle/notify-resident/models.go
package notifyresident

import "barangay-portal/internal/models"

// Input is the lifecycle event carried by the process instance.
type Input = models.LifecycleEvent

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "skipped", "disabled"
	Channels       []string `json:"channels,omitempty"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

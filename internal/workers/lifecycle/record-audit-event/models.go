// internal/workers/lifecycle/record-audit-event/models.go
package recordauditevent

import "barangay-portal/internal/models"

type Input = models.LifecycleEvent

type Output struct {
	AuditID    int64  `json:"auditId"`
	RecordedAt string `json:"recordedAt"`
}

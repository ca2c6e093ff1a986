// internal/workers/lifecycle/record-audit-event/handler.go
package recordauditevent

import (
	"context"
	"encoding/json"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/metrics"
	"barangay-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-audit-event"
)

// AuditWriter is implemented by *repository.Repository.
type AuditWriter interface {
	InsertAuditEvent(ctx context.Context, e *models.AuditEvent) (int64, error)
}

type Handler struct {
	config *Config
	audit  AuditWriter
	logger logger.Logger
	errors *apperrors.JobErrorHandler
}

func NewHandler(config *Config, audit AuditWriter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		audit:  audit,
		logger: log,
		errors: apperrors.NewJobErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewValidationError("parse input", map[string]string{"variables": err.Error()}))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.EventType == "" || input.ResourceType == "" || input.ResourceID == "" {
		return nil, apperrors.NewValidationError("incomplete lifecycle event", map[string]string{
			"eventType": input.EventType, "resourceType": input.ResourceType, "resourceId": input.ResourceID,
		})
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	id, err := h.audit.InsertAuditEvent(ctx, &models.AuditEvent{
		EventType:    input.EventType,
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		ActorID:      input.ActorID,
		Details:      details(input),
		CreatedAt:    occurred,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}

	return &Output{
		AuditID:    id,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func details(input *Input) map[string]interface{} {
	d := map[string]interface{}{"eventId": input.EventID}
	set := func(k, v string) {
		if v != "" {
			d[k] = v
		}
	}
	set("serviceId", input.ServiceID)
	set("userId", input.UserID)
	set("fromStatus", input.FromStatus)
	set("toStatus", input.ToStatus)
	set("comment", input.Comment)
	for k, v := range input.Metadata {
		d[k] = v
	}
	return d
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

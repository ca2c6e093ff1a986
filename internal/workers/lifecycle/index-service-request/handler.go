// internal/workers/lifecycle/index-service-request/handler.go
package indexservicerequest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/metrics"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"
	"barangay-portal/internal/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "index-service-request"
)

// RequestLoader reads the current state of a request.
type RequestLoader interface {
	GetRequest(ctx context.Context, d lifecycle.Domain, id string) (models.ServiceRequest, error)
}

// Indexer is implemented by *search.Index.
type Indexer interface {
	Upsert(ctx context.Context, doc search.Document) error
	Remove(ctx context.Context, domain, id string) error
}

type Handler struct {
	config   *Config
	requests RequestLoader
	index    Indexer
	logger   logger.Logger
	errors   *apperrors.JobErrorHandler
}

func NewHandler(config *Config, requests RequestLoader, index Indexer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		requests: requests,
		index:    index,
		logger:   log,
		errors:   apperrors.NewJobErrorHandler(log),
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
	d := lifecycle.Domain(input.ResourceType)
	if !lifecycle.IsDomain(d) {
		return h.output(ActionSkipped, ""), nil
	}

	if input.EventType == models.EventDeleted {
		return h.remove(ctx, d, input.ResourceID)
	}

	req, err := h.requests.GetRequest(ctx, d, input.ResourceID)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted before this job ran
		return h.remove(ctx, d, input.ResourceID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("load request", err)
	}

	doc := search.DocumentFrom(req)
	if err := h.index.Upsert(ctx, doc); err != nil {
		return nil, apperrors.NewIndexFailedError(err)
	}

	h.logger.Debug("request indexed", map[string]interface{}{
		"serviceId": doc.ServiceID,
		"status":    doc.Status,
	})
	return h.output(ActionIndexed, doc.Domain+"-"+doc.ID), nil
}

func (h *Handler) remove(ctx context.Context, d lifecycle.Domain, id string) (*Output, error) {
	if err := h.index.Remove(ctx, string(d), id); err != nil {
		return nil, apperrors.NewIndexFailedError(err)
	}
	return h.output(ActionRemoved, string(d)+"-"+id), nil
}

func (h *Handler) output(action, docID string) *Output {
	return &Output{
		DocumentID: docID,
		Action:     action,
		IndexedAt:  time.Now().UTC().Format(time.RFC3339),
	}
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

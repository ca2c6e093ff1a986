// internal/workers/lifecycle/notify-resident/handler.go
package notifyresident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/metrics"
	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-resident"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrTemplateNotFound       = errors.New("TEMPLATE_NOT_FOUND")
)

// Mailer is implemented by aws.SESClient.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

// Texter is implemented by aws.SNSClient.
type Texter interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// ContactDirectory resolves a resident's email and phone.
type ContactDirectory interface {
	GetContact(ctx context.Context, userID string) (email, phone string, err error)
}

type Handler struct {
	config   *Config
	contacts ContactDirectory
	mailer   Mailer
	texter   Texter
	logger   logger.Logger
	errors   *apperrors.JobErrorHandler
}

func NewHandler(config *Config, contacts ContactDirectory, mailer Mailer, texter Texter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		contacts: contacts,
		mailer:   mailer,
		texter:   texter,
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
	tmpl, ok := templates[input.EventType]
	if !ok {
		// deletions and other staff-only events are not announced
		return h.output(StatusSkipped, nil), nil
	}

	data := templateData(input)

	if input.EventType == models.EventContactReceived {
		return h.notifyInbox(ctx, tmpl, data)
	}

	email, phone, err := h.contacts.GetContact(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.logger.Warn("recipient not found", map[string]interface{}{"userId": input.UserID})
			return h.output(StatusSkipped, nil), nil
		}
		return nil, apperrors.NewQueryExecutionFailedError("get contact", err)
	}

	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	var channels []string
	if h.config.EmailEnabled && email != "" {
		if _, err := h.mailer.SendEmail(ctx, email, subject, body); err != nil {
			return nil, fmt.Errorf("%w: email: %v", ErrNotificationSendFailed, err)
		}
		channels = append(channels, ChannelEmail)
	}

	if h.config.SMSEnabled && phone != "" && wantsSMS(input) {
		if _, err := h.texter.SendSMS(ctx, phone, body); err != nil {
			// email already went out; SMS is best effort
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":     err.Error(),
				"serviceId": input.ServiceID,
			})
		} else {
			channels = append(channels, ChannelSMS)
		}
	}

	if len(channels) == 0 {
		return h.output(StatusDisabled, nil), nil
	}
	return h.output(StatusSent, channels), nil
}

func (h *Handler) notifyInbox(ctx context.Context, tmpl template, data map[string]interface{}) (*Output, error) {
	if !h.config.EmailEnabled || h.config.InboxEmail == "" {
		return h.output(StatusDisabled, nil), nil
	}
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)
	if _, err := h.mailer.SendEmail(ctx, h.config.InboxEmail, subject, body); err != nil {
		return nil, fmt.Errorf("%w: inbox: %v", ErrNotificationSendFailed, err)
	}
	return h.output(StatusSent, []string{ChannelEmail}), nil
}

// wantsSMS limits texts to ambulance bookings and requests that wait on the
// resident.
func wantsSMS(input *Input) bool {
	if input.ResourceType == string(lifecycle.DomainAmbulance) {
		return true
	}
	return input.ToStatus == string(lifecycle.StatusNeedsApproval)
}

func templateData(input *Input) map[string]interface{} {
	data := map[string]interface{}{
		"serviceId":     input.ServiceID,
		"resourceLabel": resourceLabels[input.ResourceType],
		"summary":       input.Summary,
		"comment":       input.Comment,
		"fromStatus":    input.FromStatus,
		"toStatus":      input.ToStatus,
	}
	if input.ToStatus != "" {
		if d := lifecycle.Domain(input.ResourceType); lifecycle.IsDomain(d) {
			data["statusLabel"] = lifecycle.Display(d, lifecycle.Status(input.ToStatus)).Label
		} else {
			data["statusLabel"] = input.ToStatus
		}
	}
	for k, v := range input.Metadata {
		data[k] = v
	}
	return data
}

func (h *Handler) output(status string, channels []string) *Output {
	return &Output{
		NotificationID: uuid.New().String(),
		Status:         status,
		Channels:       channels,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
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
	if errors.Is(err, ErrNotificationSendFailed) {
		err = apperrors.NewNotificationSendFailedError("email", err)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

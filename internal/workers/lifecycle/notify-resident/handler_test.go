// internal/workers/lifecycle/notify-resident/handler_test.go
package notifyresident

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/models"
	"barangay-portal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type sentMail struct {
	To, Subject, Body string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) SendEmail(_ context.Context, to, subject, body string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return fmt.Sprintf("msg-%d", len(m.sent)), nil
}

type mockTexter struct {
	phones []string
	err    error
}

func (m *mockTexter) SendSMS(_ context.Context, phone, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.phones = append(m.phones, phone)
	return "sms-1", nil
}

type mockContacts map[string][2]string

func (m mockContacts) GetContact(_ context.Context, userID string) (string, string, error) {
	c, ok := m[userID]
	if !ok {
		return "", "", fmt.Errorf("%w: user %s", repository.ErrNotFound, userID)
	}
	return c[0], c[1], nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		InboxEmail:   "helpdesk@barangay.gov.ph",
		Timeout:      5 * time.Second,
	}
}

func newTestHandler(t *testing.T, mailer *mockMailer, texter *mockTexter) *Handler {
	contacts := mockContacts{"user-1": {"juan@example.com", "09171234567"}}
	return NewHandler(createTestConfig(), contacts, mailer, texter, logger.NewTestLogger(t))
}

func createTestInput(eventType, resourceType string) *Input {
	return &Input{
		EventID:      "evt-1",
		EventType:    eventType,
		ResourceType: resourceType,
		ResourceID:   "req-1",
		ServiceID:    "AMB-20261016-0A1B2C",
		UserID:       "user-1",
		Summary:      "Patient transfer to provincial hospital",
		OccurredAt:   time.Now(),
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AmbulanceGetsEmailAndSMS(t *testing.T) {
	mailer, texter := &mockMailer{}, &mockTexter{}
	h := newTestHandler(t, mailer, texter)

	out, err := h.Execute(context.Background(), createTestInput(models.EventSubmitted, "ambulance"))
	require.NoError(t, err)

	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, out.Channels)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "juan@example.com", mailer.sent[0].To)
	assert.Equal(t, "We received your ambulance booking (AMB-20261016-0A1B2C)", mailer.sent[0].Subject)
	assert.Equal(t, []string{"09171234567"}, texter.phones)
}

func TestHandler_Execute_ProposalEmailOnly(t *testing.T) {
	mailer, texter := &mockMailer{}, &mockTexter{}
	h := newTestHandler(t, mailer, texter)

	input := createTestInput(models.EventStatusChanged, "proposal")
	input.ServiceID = "PRP-20261016-ABCDEF"
	input.ToStatus = "considered"
	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []string{ChannelEmail}, out.Channels)
	assert.Empty(t, texter.phones)
	assert.Equal(t, "Update on PRP-20261016-ABCDEF: Considered", mailer.sent[0].Subject)
}

func TestHandler_Execute_NeedsApprovalUsesDomainLabelAndComment(t *testing.T) {
	mailer, texter := &mockMailer{}, &mockTexter{}
	h := newTestHandler(t, mailer, texter)

	input := createTestInput(models.EventStatusChanged, "ambulance")
	input.FromStatus = "pending"
	input.ToStatus = "needs_approval"
	input.Comment = "Please confirm the diesel cost for this trip before we can book the ambulance."
	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Subject, "Awaiting Diesel Confirmation")
	assert.Contains(t, mailer.sent[0].Body, "confirm the diesel cost")
}

func TestHandler_Execute_RecipientNotFoundIsSkipped(t *testing.T) {
	mailer := &mockMailer{}
	h := newTestHandler(t, mailer, &mockTexter{})

	input := createTestInput(models.EventSubmitted, "court")
	input.UserID = "ghost"
	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, mailer.sent)
}

func TestHandler_Execute_EmailFailureIsRetryable(t *testing.T) {
	h := newTestHandler(t, &mockMailer{err: errors.New("throttling")}, &mockTexter{})

	_, err := h.Execute(context.Background(), createTestInput(models.EventSubmitted, "document"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotificationSendFailed))
}

func TestHandler_Execute_SMSFailureKeepsEmail(t *testing.T) {
	mailer := &mockMailer{}
	h := newTestHandler(t, mailer, &mockTexter{err: errors.New("opted out")})

	out, err := h.Execute(context.Background(), createTestInput(models.EventCancelled, "ambulance"))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)
}

func TestHandler_Execute_ContactGoesToInbox(t *testing.T) {
	mailer := &mockMailer{}
	h := newTestHandler(t, mailer, &mockTexter{})

	input := &Input{
		EventType:    models.EventContactReceived,
		ResourceType: "contact",
		ResourceID:   "msg-1",
		Metadata: map[string]interface{}{
			"name":    "Maria Santos",
			"email":   "maria@example.com",
			"subject": "Streetlight out",
			"message": "The streetlight on Purok 3 is out.",
		},
	}
	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "helpdesk@barangay.gov.ph", mailer.sent[0].To)
	assert.Equal(t, "Contact form: Streetlight out", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Body, "Purok 3")
}

func TestHandler_Execute_DeletionNotAnnounced(t *testing.T) {
	mailer := &mockMailer{}
	h := newTestHandler(t, mailer, &mockTexter{})

	out, err := h.Execute(context.Background(), createTestInput(models.EventDeleted, "proposal"))
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, mailer.sent)
}

func TestHandler_Execute_ChannelsDisabled(t *testing.T) {
	mailer := &mockMailer{}
	h := newTestHandler(t, mailer, &mockTexter{})
	h.config.EmailEnabled = false
	h.config.SMSEnabled = false

	out, err := h.Execute(context.Background(), createTestInput(models.EventSubmitted, "ambulance"))
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.Status)
}

func TestRenderTemplate_DropsMissingPlaceholders(t *testing.T) {
	got := renderTemplate("Hello {{name}}, {{missing}}ref {{serviceId}}", map[string]interface{}{
		"name":      "Juan",
		"serviceId": 42,
	})
	assert.Equal(t, "Hello Juan, ref 42", got)
}

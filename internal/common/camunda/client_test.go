package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig:       &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := testClient()
	attempts := 0
	res, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "create-instance")

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := testClient()
	attempts := 0
	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("process definition not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestExecuteWithRetry_ExhaustedMapsToTimeout(t *testing.T) {
	c := testClient()
	attempts := 0
	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("context deadline exceeded")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("Unavailable: broker unreachable")))
	assert.True(t, isRetryableZeebeError(stderrors.New("write: broken pipe")))
	assert.False(t, isRetryableZeebeError(stderrors.New("permission denied")))
}

func TestHealthCheck(t *testing.T) {
	c := testClient()
	var deadline time.Time
	c.topology = func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}
	require.NoError(t, c.HealthCheck(context.Background()))
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)

	c.topology = func(context.Context) error {
		return stderrors.New("rpc error: code = Unavailable desc = connection refused")
	}
	err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExternalService, errors.CodeOf(err))
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher(logger.NewTestLogger(t))
	assert.NoError(t, p.Publish(context.Background(), models.LifecycleEvent{EventType: models.EventSubmitted}))
}

func TestInstrument_CallsHandler(t *testing.T) {
	called := false
	h := Instrument("record-audit-event", func(worker.JobClient, entities.Job) { called = true })
	h(nil, entities.Job{})
	assert.True(t, called)
}

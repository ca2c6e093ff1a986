package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client with retry and error mapping. The
// portal uses it to publish lifecycle messages and to open job workers.
type Client struct {
	client zbc.Client
	config *ClientConfig

	// topology asks the gateway for the cluster topology.
	topology func(context.Context) error
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig bounds the exponential backoff of ExecuteWithRetry.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientFromConfig dials the gateway named in the camunda section and
// checks it answers a topology request before returning.
func NewClientFromConfig(cfg config.CamundaConfig) (*Client, error) {
	requestTimeout := config.GetDuration(cfg.RequestTimeout)
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	ccfg := &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         requestTimeout,
		RetryConfig:            DefaultRetryConfig,
	}

	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         ccfg.GatewayAddress,
		UsePlaintextConnection: ccfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}
	c := &Client{
		client: zc,
		config: ccfg,
		topology: func(ctx context.Context) error {
			_, err := zc.NewTopologyCommand().Send(ctx)
			return err
		},
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		zc.Close()
		return nil, fmt.Errorf("broker at %s: %w", ccfg.GatewayAddress, err)
	}
	return c, nil
}

// GetClient returns the raw Zeebe client, used to open job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the gateway for its topology within the connection
// timeout. Both binaries use it as part of /ready.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if err := c.topology(ctx); err != nil {
		return c.mapZeebeError(err, "topology", 0)
	}
	return nil
}

// ExecuteWithRetry runs commandFunc, retrying transient gateway failures
// with exponential backoff. Permanent failures return at once.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	retry := c.config.RetryConfig
	var lastErr error

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableZeebeError(err) || attempt == retry.MaxRetries {
			return nil, c.mapZeebeError(err, operationName, attempt)
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("operation %s cancelled after %d attempts: %w", operationName, attempt, ctx.Err())
		}
	}

	return nil, fmt.Errorf("operation %s failed after %d retries: %w", operationName, retry.MaxRetries, lastErr)
}

var (
	unavailablePhrases = []string{"connection refused", "connection reset", "unavailable", "unreachable", "broken pipe"}
	timeoutPhrases     = []string{"timeout", "deadline exceeded"}
)

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	return containsAny(msg, unavailablePhrases) || containsAny(msg, timeoutPhrases)
}

// mapZeebeError converts gateway errors into application errors.
func (c *Client) mapZeebeError(err error, operation string, attempt int) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	prefix := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		prefix += fmt.Sprintf(" after %d attempts", attempt)
	}
	wrapped := fmt.Errorf("%s: %s", prefix, msg)

	switch {
	case containsAny(lower, unavailablePhrases):
		return errors.NewExternalServiceError("zeebe", wrapped)
	case containsAny(lower, timeoutPhrases):
		return errors.NewTimeoutError("zeebe", wrapped)
	case strings.Contains(lower, "not found"):
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case strings.Contains(lower, "already exists"):
		return errors.NewBusinessRuleError(wrapped.Error(), "Resource already exists")
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "unauthorized"):
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

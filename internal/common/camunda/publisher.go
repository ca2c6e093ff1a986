package camunda

import (
	"context"
	"fmt"

	"barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
)

// Publisher hands lifecycle events to the workflow engine.
type Publisher interface {
	Publish(ctx context.Context, ev models.LifecycleEvent) error
}

// ZeebePublisher starts one instance of the lifecycle process per event. The
// event fields become the process variables read by the workers.
type ZeebePublisher struct {
	client    *Client
	processID string
	logger    logger.Logger
}

func NewZeebePublisher(client *Client, processID string, log logger.Logger) *ZeebePublisher {
	return &ZeebePublisher{
		client:    client,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"processId": processID}),
	}
}

func (p *ZeebePublisher) Publish(ctx context.Context, ev models.LifecycleEvent) error {
	result, err := p.client.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := p.client.GetClient().NewCreateInstanceCommand().
			BPMNProcessId(p.processID).
			LatestVersion().
			VariablesFromObject(ev)
		if err != nil {
			return nil, fmt.Errorf("encode variables: %w", err)
		}
		return cmd.Send(ctx)
	}, "create-instance:"+p.processID)
	if err != nil {
		p.logger.Error("lifecycle event not published", map[string]interface{}{
			"eventType":  ev.EventType,
			"resourceId": ev.ResourceID,
			"error":      err.Error(),
		})
		return errors.NewWorkflowPublishFailedError(err)
	}

	fields := map[string]interface{}{
		"eventType":  ev.EventType,
		"resourceId": ev.ResourceID,
	}
	if resp, ok := result.(*pb.CreateProcessInstanceResponse); ok {
		fields["processInstanceKey"] = resp.GetProcessInstanceKey()
	}
	p.logger.Debug("lifecycle event published", fields)
	return nil
}

// NoopPublisher logs events and drops them. It is used when the workflow
// engine is disabled in config.
type NoopPublisher struct {
	logger logger.Logger
}

func NewNoopPublisher(log logger.Logger) *NoopPublisher {
	return &NoopPublisher{logger: log}
}

func (p *NoopPublisher) Publish(_ context.Context, ev models.LifecycleEvent) error {
	p.logger.Debug("workflow disabled, dropping lifecycle event", map[string]interface{}{
		"eventType":  ev.EventType,
		"resourceId": ev.ResourceID,
	})
	return nil
}

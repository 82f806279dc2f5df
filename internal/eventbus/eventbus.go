// Package eventbus publishes domain events to an EventBridge bus.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/pkg/types"
)

const eventSource = "sandvault.leases"

// PutEvents accepts at most 10 entries per call.
const maxBatchSize = 10

// EventBridgeAPI defines the EventBridge client methods we use.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher sends domain events to one event bus. Publishing is
// fire-and-forget from the domain's point of view: failures surface to the
// caller but are never transactional with store writes.
type Publisher struct {
	client  EventBridgeAPI
	busName string
	log     logger.Logger
}

func NewPublisher(client EventBridgeAPI, busName string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.New()
	}
	return &Publisher{client: client, busName: busName, log: log}
}

// Publish sends the events in PutEvents batches.
func (p *Publisher) Publish(ctx context.Context, events ...types.Event) error {
	for start := 0; start < len(events); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, events []types.Event) error {
	entries := make([]ebtypes.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", event.DetailType(), err)
		}
		entries = append(entries, ebtypes.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(event.DetailType()),
			Detail:       aws.String(string(detail)),
		})
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		for _, entry := range out.Entries {
			if entry.ErrorCode != nil {
				p.log.WithFields(map[string]interface{}{
					"code":    aws.ToString(entry.ErrorCode),
					"message": aws.ToString(entry.ErrorMessage),
				}).Warn("event entry rejected by bus")
			}
		}
		return fmt.Errorf("%d of %d events failed to publish", out.FailedEntryCount, len(entries))
	}
	return nil
}

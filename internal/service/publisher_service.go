// FILE: internal/service/publisher_service.go
package service

import (
	"context"
	"fmt"

	"market-insight-be/internal/pkg/logger"
	"market-insight-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher is an external event bus; *nats.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
	external  EventPublisher
	logger    logger.ILogger
}

// NewPublisherService publishes to the in-process topic and, when external
// is non-nil, to the external bus as well.
func NewPublisherService(topicName string, pubSub *gochannel.GoChannel, external EventPublisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
		external:  external,
		logger:    log,
	}
}

func (ps *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := ps.pubSub.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventType(), err)
	}

	if ps.external != nil {
		if err := ps.external.Publish(ctx, event); err != nil {
			// the in-process delivery already happened
			ps.logger.Warn("PUBLISHER", "External event publish failed", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}
	return nil
}

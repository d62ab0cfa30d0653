package service

import (
	"context"
	"strings"

	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/pkg/events"
	pktNats "ai-widgetchat-be/pkg/nats"
)

// StatusDelivery pushes pipeline status frames to connected clients.
// Implemented by the websocket Hub.
type StatusDelivery interface {
	Broadcast(eventType string, payload map[string]interface{})
}

// EventFeedService bridges durable NATS pipeline events onto the live
// websocket feed so the dashboard sees widgets move through
// generating/active/error without polling.
type EventFeedService struct {
	subscriber *pktNats.Subscriber
	delivery   StatusDelivery
	logger     logger.ILogger
}

func NewEventFeedService(sub *pktNats.Subscriber, delivery StatusDelivery, log logger.ILogger) *EventFeedService {
	return &EventFeedService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *EventFeedService) Start() {
	err := s.subscriber.Subscribe("events.>", "status-feed-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("EventFeed", "Failed to start event subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("EventFeed", "Event feed started, listening to events.>", nil)
}

func (s *EventFeedService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	if s.delivery != nil {
		s.delivery.Broadcast(typeCode, event.Payload())
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/events"
)

// Publisher forwards serialized events to an external channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// AuditService writes the audit trail for authentication events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	publisher  Publisher
	channel    string
}

// NewAuditService creates the service. publisher may be nil to keep the trail in the log only.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, publisher Publisher, channel string) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		publisher:  publisher,
		channel:    channel,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionIssued, a.handleSessionIssued)
	a.dispatcher.Subscribe(events.EventExchangeFailed, a.handleExchangeFailed)
	a.dispatcher.Subscribe(events.EventSessionRejected, a.handleSessionRejected)
	a.dispatcher.Subscribe(events.EventAccessDenied, a.handleAccessDenied)
	a.dispatcher.Subscribe(events.EventSignedOut, a.handleSignedOut)
}

func (a *AuditService) handleSessionIssued(ctx context.Context, event events.Event) error {
	a.logger.Info("SessionIssued", eventFields(event)...)
	return a.forward(ctx, event)
}

func (a *AuditService) handleExchangeFailed(ctx context.Context, event events.Event) error {
	a.logger.Warn("ExchangeFailed", eventFields(event)...)
	return a.forward(ctx, event)
}

func (a *AuditService) handleSessionRejected(ctx context.Context, event events.Event) error {
	a.logger.Info("SessionRejected", eventFields(event)...)
	return a.forward(ctx, event)
}

func (a *AuditService) handleAccessDenied(ctx context.Context, event events.Event) error {
	a.logger.Warn("AccessDenied", eventFields(event)...)
	return a.forward(ctx, event)
}

func (a *AuditService) handleSignedOut(ctx context.Context, event events.Event) error {
	a.logger.Info("SignedOut", eventFields(event)...)
	return a.forward(ctx, event)
}

func (a *AuditService) forward(ctx context.Context, event events.Event) error {
	if a.publisher == nil || a.channel == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	if _, err := a.publisher.Publish(ctx, a.channel, payload); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	a.logger.Debug("event forwarded", zap.String("channel", a.channel), zap.String("event_id", event.ID))
	return nil
}

func eventFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("endpoint", event.Endpoint),
		zap.String("subject", event.Actor.Subject),
		zap.String("role", string(event.Actor.Role)),
		zap.String("session_id", event.Actor.SessionID),
		zap.Any("payload", event.Payload),
	}
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/griga-events/ticketing/internal/events"
	"github.com/griga-events/ticketing/internal/observability"
)

// AuditService records issuance outcomes published on the dispatcher.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketIssued, a.handleTicketIssued)
	a.dispatcher.Subscribe(events.EventWebhookIgnored, a.handleWebhookIgnored)
	a.dispatcher.Subscribe(events.EventWebhookDuplicate, a.handleWebhookDuplicate)
}

func (a *AuditService) handleTicketIssued(_ context.Context, event events.Event) error {
	a.metrics.Inc(observability.CounterTicketsIssued)
	a.logger.Info("TicketIssued", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleWebhookIgnored(_ context.Context, event events.Event) error {
	a.metrics.Inc(observability.CounterWebhooksIgnored)
	a.logger.Debug("WebhookIgnored", zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleWebhookDuplicate(_ context.Context, event events.Event) error {
	a.metrics.Inc(observability.CounterWebhooksDuplicate)
	a.logger.Info("WebhookDuplicate", zap.Any("payload", event.Payload))
	return nil
}

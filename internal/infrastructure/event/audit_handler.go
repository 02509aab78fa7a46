package event

import (
	"context"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every published domain event as one structured log entry
type AuditLogHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler. Unregistered event types are rejected.
func NewAuditLogHandler(serializer *EventSerializer, log *zap.Logger) *AuditLogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogHandler{serializer: serializer, logger: log.Named("audit")}
}

// EventTypes subscribes to all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the serialized event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	rec, err := h.serializer.Encode(event)
	if err != nil {
		return err
	}

	log := h.logger
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	logger.WithTraceContext(ctx, log).Info("domain event",
		zap.String("event_type", rec.EventType),
		zap.String("event_id", rec.EventID.String()),
		zap.String("aggregate_type", rec.AggregateType),
		zap.String("aggregate_id", rec.AggregateID.String()),
		zap.Time("occurred_at", rec.OccurredAt),
		zap.Any("payload", rec.Payload),
	)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)

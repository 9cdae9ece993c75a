package events

import (
	"context"
	"encoding/json"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/contracts"
	"github.com/ringledger/callsync/internal/infrastructure/messaging"
)

// SyncPublisher announces the outcome of each record sync so downstream
// consumers (dashboards, alerting) can follow reconciliation in near real
// time without polling the audit log.
type SyncPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewSyncPublisher(rabbitmq *messaging.RabbitMQ) *SyncPublisher {
	return &SyncPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *SyncPublisher) PublishSyncResult(ctx context.Context, record *domain.CallRecord, entry *domain.SyncLogEntry) error {
	payload := messaging.SyncResultData{
		RecordID:  record.ID,
		CallerID:  record.CallerID,
		Status:    entry.Status,
		EventType: entry.EventType,
		Revenue:   entry.Revenue,
		Payout:    entry.Payout,
		Timestamp: entry.Timestamp,
	}

	resultJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	routingKey := contracts.EventSyncCompleted
	if entry.Status == domain.SyncFailed {
		routingKey = contracts.EventSyncFailed
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		BatchID: record.ID,
		Data:    resultJSON,
	})
}

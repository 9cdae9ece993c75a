package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/contracts"
	"github.com/ringledger/callsync/internal/infrastructure/logging"
	"github.com/ringledger/callsync/internal/infrastructure/messaging"
	"github.com/ringledger/callsync/internal/infrastructure/metrics"
	"github.com/ringledger/callsync/internal/recon/match"
)

// IngestConsumer stores normalized scraper batches. Calls upsert on their
// soft identity; adjustments are append-only and get attached to the
// nearest same-caller call record, or become a new unmatched record with
// payout 0 when no record is close enough.
type IngestConsumer struct {
	rabbitmq    *messaging.RabbitMQ
	records     domain.CallRecordRepository
	adjustments domain.AdjustmentRepository
	matcher     *match.Engine
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewIngestConsumer(
	rabbitmq *messaging.RabbitMQ,
	records domain.CallRecordRepository,
	adjustments domain.AdjustmentRepository,
	matcher *match.Engine,
	logger logging.Logger,
	m *metrics.Metrics,
) *IngestConsumer {
	return &IngestConsumer{
		rabbitmq:    rabbitmq,
		records:     records,
		adjustments: adjustments,
		matcher:     matcher,
		logger:      logger,
		metrics:     m,
	}
}

func (c *IngestConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.IngestQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			return fmt.Errorf("failed to unmarshal envelope: %w", err)
		}

		switch msg.RoutingKey {
		case contracts.EventCallsScraped:
			var payload messaging.CallBatchData
			if err := json.Unmarshal(message.Data, &payload); err != nil {
				return fmt.Errorf("failed to unmarshal call batch: %w", err)
			}
			return c.HandleCallBatch(ctx, payload)

		case contracts.EventAdjustmentsScraped:
			var payload messaging.AdjustmentBatchData
			if err := json.Unmarshal(message.Data, &payload); err != nil {
				return fmt.Errorf("failed to unmarshal adjustment batch: %w", err)
			}
			return c.HandleAdjustmentBatch(ctx, payload)
		}

		c.logger.Warn(logging.RabbitMQ, logging.Ingest, "unknown routing key", map[logging.ExtraKey]any{
			"routing_key": msg.RoutingKey,
		})
		return nil
	})
}

func (c *IngestConsumer) HandleCallBatch(ctx context.Context, batch messaging.CallBatchData) error {
	inserted, duplicates := 0, 0

	for _, call := range batch.Calls {
		record := domain.NewCallRecord(
			call.CallerID,
			call.CallAt,
			call.CampaignPhone,
			call.Payout,
			domain.TrafficCategory(call.Category),
		)

		err := c.records.Insert(ctx, record)
		if errors.Is(err, domain.ErrRecordAlreadyExists) {
			duplicates++
			continue
		}
		if err != nil {
			c.count("calls", "error")
			return fmt.Errorf("failed to insert call record: %w", err)
		}
		inserted++
	}

	c.count("calls", "ok")
	c.logger.Info(logging.RabbitMQ, logging.Ingest, "call batch stored", map[logging.ExtraKey]any{
		"inserted":   inserted,
		"duplicates": duplicates,
	})
	return nil
}

func (c *IngestConsumer) HandleAdjustmentBatch(ctx context.Context, batch messaging.AdjustmentBatchData) error {
	for _, scraped := range batch.Adjustments {
		if err := c.handleAdjustment(ctx, scraped); err != nil {
			c.count("adjustments", "error")
			return err
		}
	}

	c.count("adjustments", "ok")
	return nil
}

func (c *IngestConsumer) handleAdjustment(ctx context.Context, scraped messaging.ScrapedAdjustment) error {
	adjustment := &domain.AdjustmentRecord{
		CallSID:    scraped.CallSID,
		CallAt:     scraped.CallAt,
		AdjustedAt: scraped.AdjustedAt,
		Amount:     scraped.Amount,
		Class:      scraped.Class,
		Duration:   scraped.Duration,
		CreatedAt:  time.Now(),
	}

	err := c.adjustments.Insert(ctx, adjustment)
	if errors.Is(err, domain.ErrAdjustmentAlreadyExists) {
		// Call-sids are globally unique and stored rows are never
		// overwritten; a replayed batch is a no-op.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert adjustment %s: %w", scraped.CallSID, err)
	}

	candidates, err := c.records.FindByCallerOnDay(ctx, scraped.CallerID, scraped.CallAt)
	if err != nil {
		return fmt.Errorf("failed to load candidates for %s: %w", scraped.CallerID, err)
	}

	query := match.Query{CallerID: scraped.CallerID, At: scraped.CallAt}
	if matched := c.matcher.Best(query, candidates); matched != nil {
		if err := c.records.AttachAdjustment(ctx, matched.ID, adjustment); err != nil {
			return fmt.Errorf("failed to attach adjustment to %s: %w", matched.ID, err)
		}
		c.logger.Debug(logging.Sync, logging.Matching, "adjustment attached", map[logging.ExtraKey]any{
			logging.RecordID: matched.ID,
			logging.CallerID: scraped.CallerID,
			"call_sid":       scraped.CallSID,
		})
		return nil
	}

	// No record within the window: store the adjustment as a fresh
	// unmatched record with payout 0 so it still gets reconciled.
	zero := 0.0
	record := domain.NewCallRecord(scraped.CallerID, scraped.CallAt, "", &zero, domain.CategoryStatic)
	record.AdjustedAt = &adjustment.AdjustedAt
	record.AdjustmentAmount = &adjustment.Amount
	record.AdjustmentClass = adjustment.Class
	record.AdjustmentDuration = &adjustment.Duration

	err = c.records.Insert(ctx, record)
	if errors.Is(err, domain.ErrRecordAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert unmatched record for %s: %w", scraped.CallSID, err)
	}

	c.logger.Info(logging.Sync, logging.Matching, "adjustment stored as unmatched record", map[logging.ExtraKey]any{
		logging.RecordID: record.ID,
		logging.CallerID: scraped.CallerID,
		"call_sid":       scraped.CallSID,
	})
	return nil
}

func (c *IngestConsumer) count(kind, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.IngestMessages.WithLabelValues(kind, result).Inc()
}

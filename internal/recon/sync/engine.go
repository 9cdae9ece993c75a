// Package sync drives call records through their reconciliation lifecycle
// against the billing platform: locate the platform call, resolve the
// authoritative legs, and issue idempotent payment overrides with a full
// audit trail.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/logging"
	"github.com/ringledger/callsync/internal/infrastructure/metrics"
	"github.com/ringledger/callsync/internal/infrastructure/tracing"
	"github.com/ringledger/callsync/internal/platform"
	"github.com/ringledger/callsync/internal/recon/amount"
	"github.com/ringledger/callsync/internal/recon/legs"
	"go.opentelemetry.io/otel/attribute"
)

// dayWindowMinutes is the lookup window of the same-calendar-day fallback
// tier.
const dayWindowMinutes = 24 * 60

// EventPublisher receives the outcome of every record sync. Implementations
// must not block batch processing on failure.
type EventPublisher interface {
	PublishSyncResult(ctx context.Context, record *domain.CallRecord, entry *domain.SyncLogEntry) error
}

// Summary is the user-visible output of one run. Root-cause detail lives in
// the audit log, not here.
type Summary struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Config struct {
	LookupWindowMinutes int
	PacingDelay         time.Duration
	OverrideReason      string

	// Sleep is replaceable in tests; nil means context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration)
}

type Engine struct {
	records   domain.CallRecordRepository
	logs      domain.SyncLogRepository
	gateway   platform.Gateway
	publisher EventPublisher
	logger    logging.Logger
	metrics   *metrics.Metrics
	cfg       Config
}

func NewEngine(
	records domain.CallRecordRepository,
	logs domain.SyncLogRepository,
	gateway platform.Gateway,
	publisher EventPublisher,
	logger logging.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Engine {
	if cfg.LookupWindowMinutes <= 0 {
		cfg.LookupWindowMinutes = 30
	}
	if cfg.OverrideReason == "" {
		cfg.OverrideReason = "affiliate reconciliation"
	}
	if cfg.Sleep == nil {
		cfg.Sleep = func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
			}
		}
	}

	return &Engine{
		records:   records,
		logs:      logs,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		cfg:       cfg,
	}
}

// RunBatch processes records strictly sequentially with a pacing delay
// between consecutive records, respecting the platform's rate limits. A
// failure on one record never interrupts the rest of the batch. The
// duplicate-suppression set is scoped to this batch: a platform call
// claimed by one record cannot be claimed again by a later one.
func (e *Engine) RunBatch(ctx context.Context, records []domain.CallRecord) Summary {
	tracer := tracing.GetTracer("recon/sync")
	ctx, span := tracer.Start(ctx, "sync.batch")
	defer span.End()

	start := time.Now()
	seen := make(map[string]bool, len(records))

	var summary Summary
	for i := range records {
		if i > 0 && e.cfg.PacingDelay > 0 {
			e.cfg.Sleep(ctx, e.cfg.PacingDelay)
		}
		if ctx.Err() != nil {
			break
		}

		record := records[i]
		entry := e.syncOne(ctx, &record, seen)

		switch {
		case entry.EventType == domain.EventSyncSkippedMatches:
			summary.Skipped++
		case entry.Status == domain.SyncSuccess:
			summary.Synced++
		default:
			summary.Failed++
		}

		e.countOutcome(&record, entry)
		e.publish(ctx, &record, entry)
	}

	span.SetAttributes(
		attribute.Int("sync.synced", summary.Synced),
		attribute.Int("sync.skipped", summary.Skipped),
		attribute.Int("sync.failed", summary.Failed),
	)
	if e.metrics != nil {
		e.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}

	e.logger.Info(logging.Sync, logging.BatchRun, "sync batch finished", map[logging.ExtraKey]any{
		"synced":  summary.Synced,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
		"total":   len(records),
	})

	return summary
}

// syncOne runs the full state machine for a single record and returns the
// audit entry describing the outcome. Every exit path persists both the
// record's new status and an immutable audit row.
func (e *Engine) syncOne(ctx context.Context, record *domain.CallRecord, seen map[string]bool) *domain.SyncLogEntry {
	// Terminal without a remote call: the platform cannot be queried for a
	// caller it cannot identify.
	if !record.HasValidCaller() {
		entry := domain.NewSyncCannotSyncLog(record, domain.ErrInvalidCallerID.Error())
		e.finish(ctx, record, domain.SyncCannotSync, "", entry)
		return entry
	}

	callID, err := e.locate(ctx, record, seen)
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			entry := domain.NewSyncNotFoundLog(record)
			e.finish(ctx, record, domain.SyncNotFound, "", entry)
			return entry
		}
		return e.fail(ctx, record, stageErr(StageLookup, err), nil, "")
	}
	seen[callID] = true

	if record.PlatformCallID != callID {
		record.PlatformCallID = callID
		if err := e.records.SetPlatformCallID(ctx, record.ID, callID); err != nil {
			return e.fail(ctx, record, stageErr(StagePersist, err), nil, "")
		}
	}

	chain, err := e.gateway.GetLegChain(ctx, callID)
	if err != nil {
		return e.fail(ctx, record, stageErr(StageLookup, err), nil, "")
	}

	resolution, err := legs.Resolve(chain)
	if err != nil {
		return e.fail(ctx, record, stageErr(StageLegResolution, err), nil, "")
	}

	// Short circuit: no pending adjustment and the platform already carries
	// the recorded payout. This is also what makes a crash between a
	// successful remote write and the local status commit safe - the next
	// attempt observes the updated payout and stops here.
	if !record.HasPendingAdjustment() && record.Payout != nil &&
		amount.Equal(*record.Payout, resolution.PayoutLeg.Payout) {
		entry := domain.NewSyncSkippedLog(record, resolution.PayoutLeg.Payout)
		e.finish(ctx, record, domain.SyncSuccess, "", entry)
		e.logger.Debug(logging.Sync, logging.Override, "payout already matches, skipping write", map[logging.ExtraKey]any{
			logging.RecordID:     record.ID,
			logging.PlatformCall: callID,
		})
		return entry
	}

	// Local pending marker before the first remote write: a crash from here
	// on leaves the record retryable.
	if err := e.records.MarkPending(ctx, record.ID); err != nil {
		return e.fail(ctx, record, stageErr(StagePersist, err), nil, "")
	}

	value := amount.Choose(record.Payout, record.Revenue)
	return e.override(ctx, record, resolution, value)
}

// locate finds the platform call id for a record, in priority order:
// previously attached id, windowed lookup with payout tie-break, then
// same-calendar-day fallback preferring an exact payout match. A candidate
// already claimed by this batch is suppressed.
func (e *Engine) locate(ctx context.Context, record *domain.CallRecord, seen map[string]bool) (string, error) {
	if record.PlatformCallID != "" {
		return record.PlatformCallID, nil
	}

	if record.CallAt.IsZero() {
		return "", ErrNoCandidate
	}

	candidate, err := e.gateway.LookupCall(ctx, record.CallerID, record.CallAt, e.cfg.LookupWindowMinutes, record.Payout)
	if err != nil {
		return "", err
	}
	if ok := e.usable(candidate, seen); ok {
		return candidate.CallID, nil
	}

	// Fallback tier: same calendar day, preferring exact payout.
	candidate, err = e.gateway.LookupCall(ctx, record.CallerID, record.CallAt, dayWindowMinutes, record.Payout)
	if err != nil {
		return "", err
	}
	if e.usable(candidate, seen) && sameDay(candidate.CallAt, record.CallAt) {
		return candidate.CallID, nil
	}

	return "", ErrNoCandidate
}

func (e *Engine) usable(candidate *platform.CallCandidate, seen map[string]bool) bool {
	return candidate != nil && candidate.CallID != "" && !seen[candidate.CallID]
}

// override issues the remote write(s): one combined override for a
// single-leg chain, one per leg otherwise. The same value lands in both
// payout and revenue. A revenue rejection caused specifically by an
// unconnected leg downgrades to a partial success.
func (e *Engine) override(ctx context.Context, record *domain.CallRecord, resolution *legs.Resolution, value float64) *domain.SyncLogEntry {
	reason := e.cfg.OverrideReason
	var requests []string

	if resolution.PayoutLegID == resolution.RevenueLegID {
		req := platform.OverrideRequest{
			NewPayoutAmount: &value,
			Reason:          reason,
		}
		// Revenue rides along in the combined call only when the leg was
		// actually bridged; an unconnected leg would reject the whole write.
		if resolution.PayoutLeg.Connected {
			req.NewConversionAmount = &value
		}
		requests = append(requests, marshalRequest(req))

		result, err := e.gateway.OverridePayment(ctx, resolution.PayoutLegID, req)
		if err != nil {
			e.countOverride("error")
			return e.fail(ctx, record, stageErr(StageOverride, err), requests, rawOf(err))
		}
		e.countOverride("ok")

		entry := domain.NewSyncSuccessLog(record, requests, result.Raw, value, value)
		e.finish(ctx, record, domain.SyncSuccess, result.Raw, entry)
		return entry
	}

	payoutReq := platform.OverrideRequest{NewPayoutAmount: &value, Reason: reason}
	requests = append(requests, marshalRequest(payoutReq))

	payoutResult, err := e.gateway.OverridePayment(ctx, resolution.PayoutLegID, payoutReq)
	if err != nil {
		e.countOverride("error")
		return e.fail(ctx, record, stageErr(StageOverride, err), requests, rawOf(err))
	}
	e.countOverride("ok")

	revenueReq := platform.OverrideRequest{NewConversionAmount: &value, Reason: reason}
	requests = append(requests, marshalRequest(revenueReq))

	revenueResult, err := e.gateway.OverridePayment(ctx, resolution.RevenueLegID, revenueReq)
	if err != nil {
		// The payout write landed. Only an unconnected revenue leg is a
		// tolerated rejection; anything else fails the record.
		if errors.Is(err, platform.ErrLegNotConnected) {
			e.countOverride("revenue_skipped")
			e.logger.Warn(logging.Sync, logging.Override, "revenue override rejected, leg not connected", map[logging.ExtraKey]any{
				logging.RecordID:     record.ID,
				logging.PlatformCall: record.PlatformCallID,
				"revenue_leg":        resolution.RevenueLegID,
			})
			entry := domain.NewRevenueSkippedLog(record, requests, rawOf(err), value)
			e.finish(ctx, record, domain.SyncSuccess, payoutResult.Raw, entry)
			return entry
		}
		e.countOverride("error")
		return e.fail(ctx, record, stageErr(StageOverride, err), requests, rawOf(err))
	}
	e.countOverride("ok")

	entry := domain.NewSyncSuccessLog(record, requests, revenueResult.Raw, value, value)
	e.finish(ctx, record, domain.SyncSuccess, revenueResult.Raw, entry)
	return entry
}

// finish commits the record's final state and appends the audit row. Audit
// append failures are logged but do not change the outcome; the remote
// write already happened.
func (e *Engine) finish(ctx context.Context, record *domain.CallRecord, status domain.SyncStatus, responseBlob string, entry *domain.SyncLogEntry) {
	var syncedAt time.Time
	if status == domain.SyncSuccess {
		syncedAt = time.Now()
		record.SyncedAt = &syncedAt
	}
	record.SyncStatus = status
	record.LastResponse = responseBlob

	if err := e.records.UpdateSyncResult(ctx, record.ID, status, responseBlob, syncedAt); err != nil {
		e.logger.Error(logging.Sync, logging.BatchRun, "failed to persist sync result", map[logging.ExtraKey]any{
			logging.RecordID:     record.ID,
			logging.Status:       string(status),
			logging.ErrorMessage: err.Error(),
		})
	}

	if err := e.logs.Append(ctx, entry); err != nil {
		e.logger.Error(logging.Sync, logging.BatchRun, "failed to append sync audit entry", map[logging.ExtraKey]any{
			logging.RecordID:     record.ID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (e *Engine) fail(ctx context.Context, record *domain.CallRecord, stageError *StageError, requests []string, response string) *domain.SyncLogEntry {
	e.logger.Error(logging.Sync, subCategoryOf(stageError.Stage), "record sync failed", map[logging.ExtraKey]any{
		logging.RecordID:     record.ID,
		logging.CallerID:     record.CallerID,
		logging.PlatformCall: record.PlatformCallID,
		logging.Stage:        string(stageError.Stage),
		logging.ErrorMessage: stageError.Err.Error(),
	})

	entry := domain.NewSyncFailedLog(record, string(stageError.Stage), requests, response, stageError)
	e.finish(ctx, record, domain.SyncFailed, response, entry)
	return entry
}

func (e *Engine) publish(ctx context.Context, record *domain.CallRecord, entry *domain.SyncLogEntry) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishSyncResult(ctx, record, entry); err != nil {
		e.logger.Warn(logging.RabbitMQ, logging.BatchRun, "failed to publish sync result", map[logging.ExtraKey]any{
			logging.RecordID:     record.ID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (e *Engine) countOutcome(record *domain.CallRecord, entry *domain.SyncLogEntry) {
	if e.metrics == nil {
		return
	}
	e.metrics.SyncRecords.WithLabelValues(string(record.Category), string(entry.EventType)).Inc()
}

func (e *Engine) countOverride(result string) {
	if e.metrics == nil {
		return
	}
	e.metrics.Overrides.WithLabelValues(result).Inc()
}

func subCategoryOf(stage Stage) logging.SubCategory {
	switch stage {
	case StageLegResolution:
		return logging.LegResolution
	case StageOverride:
		return logging.Override
	default:
		return logging.Matching
	}
}

func marshalRequest(req platform.OverrideRequest) string {
	encoded, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// rawOf extracts the raw platform response from an error when there is one.
func rawOf(err error) string {
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Raw
	}
	return ""
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

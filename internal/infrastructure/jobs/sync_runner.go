package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/logging"
	reconsync "github.com/ringledger/callsync/internal/recon/sync"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still going. Concurrent runs are prevented here, at the scheduling layer;
// the engine itself assumes a single owner.
var ErrRunInProgress = errors.New("sync run already in progress")

var categories = []domain.TrafficCategory{domain.CategoryStatic, domain.CategoryAPI}

// SyncRunner drives one bounded batch per category on a fixed interval.
type SyncRunner struct {
	engine   *reconsync.Engine
	policy   reconsync.Policy
	records  domain.CallRecordRepository
	logger   logging.Logger
	interval time.Duration
	running  atomic.Bool
	stopChan chan struct{}
}

func NewSyncRunner(
	engine *reconsync.Engine,
	policy reconsync.Policy,
	records domain.CallRecordRepository,
	logger logging.Logger,
	interval time.Duration,
) *SyncRunner {
	return &SyncRunner{
		engine:   engine,
		policy:   policy,
		records:  records,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (r *SyncRunner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info(logging.Sync, logging.Startup, "sync runner started", map[logging.ExtraKey]any{
		"interval": r.interval.String(),
	})

	r.runAll(ctx)

	for {
		select {
		case <-ticker.C:
			r.runAll(ctx)
		case <-r.stopChan:
			r.logger.Info(logging.Sync, logging.Shutdown, "sync runner stopped", nil)
			return
		case <-ctx.Done():
			r.logger.Info(logging.Sync, logging.Shutdown, "sync runner context cancelled", nil)
			return
		}
	}
}

func (r *SyncRunner) Stop() {
	close(r.stopChan)
}

func (r *SyncRunner) runAll(ctx context.Context) {
	for _, category := range categories {
		if _, err := r.RunOnce(ctx, category); err != nil && !errors.Is(err, ErrRunInProgress) {
			r.logger.Error(logging.Sync, logging.BatchRun, "scheduled run failed", map[logging.ExtraKey]any{
				"category":           string(category),
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}

// RunOnce selects and syncs one bounded batch for a category. Only one run
// may be active at a time across the scheduled loop and manual triggers.
func (r *SyncRunner) RunOnce(ctx context.Context, category domain.TrafficCategory) (reconsync.Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return reconsync.Summary{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	records, err := r.policy.SelectDue(ctx, r.records, category)
	if err != nil {
		return reconsync.Summary{}, err
	}
	if len(records) == 0 {
		return reconsync.Summary{}, nil
	}

	r.logger.Info(logging.Sync, logging.BatchRun, "sync run starting", map[logging.ExtraKey]any{
		"category": string(category),
		"selected": len(records),
	})

	return r.engine.RunBatch(ctx, records), nil
}

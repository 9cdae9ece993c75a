package sync

import (
	"context"
	"fmt"

	"github.com/ringledger/callsync/internal/domain"
)

// retryableStatuses are the non-terminal states eligible for another pass.
var retryableStatuses = []domain.SyncStatus{
	domain.SyncPending,
	domain.SyncFailed,
	domain.SyncNotFound,
}

// revalidationStatuses additionally include success: api-category records
// are re-validated on every pass because their authoritative price can only
// be confirmed from the platform. cannot_sync is excluded everywhere.
var revalidationStatuses = []domain.SyncStatus{
	domain.SyncPending,
	domain.SyncFailed,
	domain.SyncNotFound,
	domain.SyncSuccess,
}

// Policy decides which records one bounded run picks up per category.
type Policy struct {
	BatchSize int64
}

// SelectDue returns at most BatchSize records due for a sync pass.
// Static traffic: rows with a pending adjustment first, then remaining
// non-terminal rows. API traffic: every row except cannot_sync.
func (p Policy) SelectDue(ctx context.Context, repo domain.CallRecordRepository, category domain.TrafficCategory) ([]domain.CallRecord, error) {
	limit := p.BatchSize
	if limit <= 0 {
		limit = 100
	}

	if category == domain.CategoryAPI {
		return repo.FindSyncable(ctx, category, revalidationStatuses, false, limit)
	}

	prioritized, err := repo.FindSyncable(ctx, category, retryableStatuses, true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select adjusted records: %w", err)
	}

	remaining := limit - int64(len(prioritized))
	if remaining <= 0 {
		return prioritized, nil
	}

	rest, err := repo.FindSyncable(ctx, category, retryableStatuses, false, remaining+int64(len(prioritized)))
	if err != nil {
		return nil, fmt.Errorf("failed to select retryable records: %w", err)
	}

	selected := make(map[string]bool, len(prioritized))
	for _, record := range prioritized {
		selected[record.ID] = true
	}

	for _, record := range rest {
		if int64(len(prioritized)) >= limit {
			break
		}
		if selected[record.ID] {
			continue
		}
		prioritized = append(prioritized, record)
		selected[record.ID] = true
	}

	return prioritized, nil
}

package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncableQuery struct {
	category              domain.TrafficCategory
	statuses              []domain.SyncStatus
	onlyPendingAdjustment bool
	limit                 int64
}

// policyRepo answers FindSyncable from a scripted queue and records every
// query it receives.
type policyRepo struct {
	fakeRecords
	queries []syncableQuery
	results [][]domain.CallRecord
}

func (p *policyRepo) FindSyncable(_ context.Context, category domain.TrafficCategory, statuses []domain.SyncStatus, onlyPendingAdjustment bool, limit int64) ([]domain.CallRecord, error) {
	p.queries = append(p.queries, syncableQuery{
		category:              category,
		statuses:              statuses,
		onlyPendingAdjustment: onlyPendingAdjustment,
		limit:                 limit,
	})
	if len(p.results) == 0 {
		return nil, nil
	}
	out := p.results[0]
	p.results = p.results[1:]
	return out, nil
}

func pendingRecord(id string) domain.CallRecord {
	return domain.CallRecord{
		ID:         id,
		CallerID:   "15551234567",
		CallAt:     time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		Category:   domain.CategoryStatic,
		SyncStatus: domain.SyncPending,
	}
}

func TestSelectDueAPIRevalidatesSuccess(t *testing.T) {
	repo := &policyRepo{}
	policy := Policy{BatchSize: 50}

	_, err := policy.SelectDue(context.Background(), repo, domain.CategoryAPI)
	require.NoError(t, err)

	require.Len(t, repo.queries, 1)
	query := repo.queries[0]
	assert.Equal(t, domain.CategoryAPI, query.category)
	assert.False(t, query.onlyPendingAdjustment)
	assert.Equal(t, int64(50), query.limit)
	assert.Contains(t, query.statuses, domain.SyncSuccess)
	assert.NotContains(t, query.statuses, domain.SyncCannotSync)
}

func TestSelectDueStaticExcludesTerminalStatuses(t *testing.T) {
	repo := &policyRepo{}
	policy := Policy{BatchSize: 10}

	_, err := policy.SelectDue(context.Background(), repo, domain.CategoryStatic)
	require.NoError(t, err)

	require.NotEmpty(t, repo.queries)
	for _, query := range repo.queries {
		assert.NotContains(t, query.statuses, domain.SyncSuccess)
		assert.NotContains(t, query.statuses, domain.SyncCannotSync)
	}
}

func TestSelectDueStaticPrioritizesPendingAdjustments(t *testing.T) {
	repo := &policyRepo{
		results: [][]domain.CallRecord{
			{pendingRecord("adjusted-1"), pendingRecord("adjusted-2")},
			{pendingRecord("adjusted-1"), pendingRecord("plain-1"), pendingRecord("plain-2")},
		},
	}
	policy := Policy{BatchSize: 4}

	selected, err := policy.SelectDue(context.Background(), repo, domain.CategoryStatic)
	require.NoError(t, err)

	require.Len(t, repo.queries, 2)
	assert.True(t, repo.queries[0].onlyPendingAdjustment)
	assert.False(t, repo.queries[1].onlyPendingAdjustment)

	// Adjusted records come first and are not duplicated by the fill query.
	require.Len(t, selected, 4)
	assert.Equal(t, "adjusted-1", selected[0].ID)
	assert.Equal(t, "adjusted-2", selected[1].ID)
	assert.Equal(t, "plain-1", selected[2].ID)
	assert.Equal(t, "plain-2", selected[3].ID)
}

func TestSelectDueStaticStopsAtBatchSize(t *testing.T) {
	repo := &policyRepo{
		results: [][]domain.CallRecord{
			{pendingRecord("a"), pendingRecord("b")},
			{pendingRecord("c"), pendingRecord("d"), pendingRecord("e")},
		},
	}
	policy := Policy{BatchSize: 3}

	selected, err := policy.SelectDue(context.Background(), repo, domain.CategoryStatic)
	require.NoError(t, err)
	assert.Len(t, selected, 3)
}

func TestSelectDueStaticFullPriorityBatchSkipsFill(t *testing.T) {
	repo := &policyRepo{
		results: [][]domain.CallRecord{
			{pendingRecord("a"), pendingRecord("b")},
		},
	}
	policy := Policy{BatchSize: 2}

	selected, err := policy.SelectDue(context.Background(), repo, domain.CategoryStatic)
	require.NoError(t, err)
	assert.Len(t, selected, 2)
	assert.Len(t, repo.queries, 1, "no fill query when the priority tier fills the batch")
}

func TestSelectDueDefaultsBatchSize(t *testing.T) {
	repo := &policyRepo{}
	policy := Policy{}

	_, err := policy.SelectDue(context.Background(), repo, domain.CategoryAPI)
	require.NoError(t, err)

	require.Len(t, repo.queries, 1)
	assert.Equal(t, int64(100), repo.queries[0].limit)
}

package events

import (
	"context"
	"testing"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/logging"
	"github.com/ringledger/callsync/internal/infrastructure/messaging"
	"github.com/ringledger/callsync/internal/recon/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Init() {}
func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Warnf(string, ...any) {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any) {}

type memoryRecords struct {
	byID     map[string]*domain.CallRecord
	identity map[string]string // caller|minute|phone -> record id
	attached map[string]string // record id -> call sid
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{
		byID:     map[string]*domain.CallRecord{},
		identity: map[string]string{},
		attached: map[string]string{},
	}
}

func identityKey(record *domain.CallRecord) string {
	return record.CallerID + "|" + record.CallMinute.UTC().Format(time.RFC3339) + "|" + record.CampaignPhone
}

func (m *memoryRecords) Insert(_ context.Context, record *domain.CallRecord) error {
	key := identityKey(record)
	if _, ok := m.identity[key]; ok {
		return domain.ErrRecordAlreadyExists
	}
	m.identity[key] = record.ID
	m.byID[record.ID] = record
	return nil
}

func (m *memoryRecords) GetByID(_ context.Context, id string) (*domain.CallRecord, error) {
	record, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func (m *memoryRecords) FindByCallerOnDay(_ context.Context, callerID string, day time.Time) ([]domain.CallRecord, error) {
	var out []domain.CallRecord
	for _, record := range m.byID {
		if record.CallerID != callerID {
			continue
		}
		ry, rm, rd := record.CallAt.Date()
		dy, dm, dd := day.Date()
		if ry == dy && rm == dm && rd == dd {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryRecords) FindByStatus(context.Context, []domain.SyncStatus, int64) ([]domain.CallRecord, error) {
	return nil, nil
}

func (m *memoryRecords) FindSyncable(context.Context, domain.TrafficCategory, []domain.SyncStatus, bool, int64) ([]domain.CallRecord, error) {
	return nil, nil
}

func (m *memoryRecords) AttachAdjustment(_ context.Context, id string, adjustment *domain.AdjustmentRecord) error {
	record, ok := m.byID[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	record.AdjustedAt = &adjustment.AdjustedAt
	record.AdjustmentAmount = &adjustment.Amount
	record.AdjustmentClass = adjustment.Class
	record.AdjustmentDuration = &adjustment.Duration
	m.attached[id] = adjustment.CallSID
	return nil
}

func (m *memoryRecords) SetPlatformCallID(context.Context, string, string) error { return nil }
func (m *memoryRecords) MarkPending(context.Context, string) error { return nil }

func (m *memoryRecords) UpdateSyncResult(context.Context, string, domain.SyncStatus, string, time.Time) error {
	return nil
}

func (m *memoryRecords) EnsureIndexes(context.Context) error { return nil }

type memoryAdjustments struct {
	bySID map[string]*domain.AdjustmentRecord
}

func newMemoryAdjustments() *memoryAdjustments {
	return &memoryAdjustments{bySID: map[string]*domain.AdjustmentRecord{}}
}

func (m *memoryAdjustments) Insert(_ context.Context, adjustment *domain.AdjustmentRecord) error {
	if _, ok := m.bySID[adjustment.CallSID]; ok {
		return domain.ErrAdjustmentAlreadyExists
	}
	m.bySID[adjustment.CallSID] = adjustment
	return nil
}

func (m *memoryAdjustments) GetByCallSID(_ context.Context, callSID string) (*domain.AdjustmentRecord, error) {
	adjustment, ok := m.bySID[callSID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return adjustment, nil
}

func (m *memoryAdjustments) EnsureIndexes(context.Context) error { return nil }

func newTestConsumer(records *memoryRecords, adjustments *memoryAdjustments) *IngestConsumer {
	return NewIngestConsumer(nil, records, adjustments, match.NewEngine(30*time.Minute), nopLogger{}, nil)
}

func callAt(hour, minute int) time.Time {
	return time.Date(2024, 3, 15, hour, minute, 0, 0, time.UTC)
}

func TestHandleCallBatchSkipsDuplicates(t *testing.T) {
	records := newMemoryRecords()
	consumer := newTestConsumer(records, newMemoryAdjustments())

	payout := 75.0
	call := messaging.ScrapedCall{
		CallerID:      "15551234567",
		CallAt:        callAt(10, 0),
		CampaignPhone: "18005550100",
		Payout:        &payout,
		Category:      "static",
	}

	require.NoError(t, consumer.HandleCallBatch(context.Background(), messaging.CallBatchData{
		Calls: []messaging.ScrapedCall{call},
	}))
	require.Len(t, records.byID, 1)

	// Replayed batch stores nothing new.
	require.NoError(t, consumer.HandleCallBatch(context.Background(), messaging.CallBatchData{
		Calls: []messaging.ScrapedCall{call},
	}))
	assert.Len(t, records.byID, 1)
}

func TestHandleAdjustmentAttachesToNearestCall(t *testing.T) {
	records := newMemoryRecords()
	adjustments := newMemoryAdjustments()
	consumer := newTestConsumer(records, adjustments)

	payout := 50.0
	near := domain.NewCallRecord("15551234567", callAt(10, 2), "18005550100", &payout, domain.CategoryStatic)
	far := domain.NewCallRecord("15551234567", callAt(10, 12), "18005550100", &payout, domain.CategoryStatic)
	require.NoError(t, records.Insert(context.Background(), near))
	require.NoError(t, records.Insert(context.Background(), far))

	err := consumer.HandleAdjustmentBatch(context.Background(), messaging.AdjustmentBatchData{
		Adjustments: []messaging.ScrapedAdjustment{{
			CallSID:    "CA001",
			CallerID:   "15551234567",
			CallAt:     callAt(10, 0),
			AdjustedAt: callAt(14, 0),
			Amount:     -50,
			Class:      "chargeback",
			Duration:   0,
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "CA001", records.attached[near.ID])
	assert.NotContains(t, records.attached, far.ID)
	require.NotNil(t, records.byID[near.ID].AdjustmentAmount)
	assert.Equal(t, -50.0, *records.byID[near.ID].AdjustmentAmount)
	assert.Contains(t, adjustments.bySID, "CA001")
}

func TestHandleAdjustmentWithoutMatchCreatesUnmatchedRecord(t *testing.T) {
	records := newMemoryRecords()
	consumer := newTestConsumer(records, newMemoryAdjustments())

	err := consumer.HandleAdjustmentBatch(context.Background(), messaging.AdjustmentBatchData{
		Adjustments: []messaging.ScrapedAdjustment{{
			CallSID:    "CA002",
			CallerID:   "15559999999",
			CallAt:     callAt(9, 30),
			AdjustedAt: callAt(11, 0),
			Amount:     25,
			Class:      "duration",
			Duration:   600,
		}},
	})
	require.NoError(t, err)

	require.Len(t, records.byID, 1)
	for _, record := range records.byID {
		assert.Equal(t, "15559999999", record.CallerID)
		assert.Equal(t, domain.CategoryStatic, record.Category)
		require.NotNil(t, record.Payout)
		assert.Zero(t, *record.Payout)
		assert.True(t, record.HasPendingAdjustment())
		assert.Equal(t, domain.SyncPending, record.SyncStatus)
	}
}

func TestHandleAdjustmentReplayIsNoOp(t *testing.T) {
	records := newMemoryRecords()
	adjustments := newMemoryAdjustments()
	consumer := newTestConsumer(records, adjustments)

	payout := 50.0
	record := domain.NewCallRecord("15551234567", callAt(10, 0), "18005550100", &payout, domain.CategoryStatic)
	require.NoError(t, records.Insert(context.Background(), record))

	batch := messaging.AdjustmentBatchData{
		Adjustments: []messaging.ScrapedAdjustment{{
			CallSID:    "CA003",
			CallerID:   "15551234567",
			CallAt:     callAt(10, 1),
			AdjustedAt: callAt(12, 0),
			Amount:     -50,
		}},
	}

	require.NoError(t, consumer.HandleAdjustmentBatch(context.Background(), batch))
	firstAdjustedAt := *records.byID[record.ID].AdjustedAt

	require.NoError(t, consumer.HandleAdjustmentBatch(context.Background(), batch))
	assert.Len(t, adjustments.bySID, 1)
	assert.Equal(t, firstAdjustedAt, *records.byID[record.ID].AdjustedAt)
}

func TestHandleAdjustmentOutsideWindowStaysDetached(t *testing.T) {
	records := newMemoryRecords()
	consumer := newTestConsumer(records, newMemoryAdjustments())

	payout := 50.0
	record := domain.NewCallRecord("15551234567", callAt(8, 0), "18005550100", &payout, domain.CategoryStatic)
	require.NoError(t, records.Insert(context.Background(), record))

	// Same caller, same day, but 45 minutes out: beyond the match window.
	err := consumer.HandleAdjustmentBatch(context.Background(), messaging.AdjustmentBatchData{
		Adjustments: []messaging.ScrapedAdjustment{{
			CallSID:    "CA004",
			CallerID:   "15551234567",
			CallAt:     callAt(8, 45),
			AdjustedAt: callAt(9, 0),
			Amount:     -10,
		}},
	})
	require.NoError(t, err)

	assert.Nil(t, records.byID[record.ID].AdjustedAt)
	assert.Len(t, records.byID, 2, "unmatched adjustment becomes its own record")
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SyncEventType string

const (
	EventSyncSuccess        SyncEventType = "sync_success"
	EventSyncSkippedMatches SyncEventType = "sync_skipped_matches"
	EventSyncNotFound       SyncEventType = "sync_not_found"
	EventSyncCannotSync     SyncEventType = "sync_cannot_sync"
	EventSyncFailed         SyncEventType = "sync_failed"
	EventRevenueSkipped     SyncEventType = "sync_revenue_skipped"
)

// SyncLogEntry is the audit trail for one sync attempt against the billing
// platform. Entries are append-only and immutable once written; they carry
// every request payload issued and the raw platform response so a failed or
// disputed write can be reconstructed without replaying it.
type SyncLogEntry struct {
	ID             string        `bson:"_id" json:"id"`
	RecordID       string        `bson:"record_id" json:"recordId"`
	CallerID       string        `bson:"caller_id" json:"callerId"`
	PlatformCallID string        `bson:"platform_call_id,omitempty" json:"platformCallId,omitempty"`
	EventType      SyncEventType `bson:"event_type" json:"eventType"`
	Status         SyncStatus    `bson:"status" json:"status"`
	Stage          string        `bson:"stage,omitempty" json:"stage,omitempty"`
	Requests       []string      `bson:"requests,omitempty" json:"requests,omitempty"`
	Response       string        `bson:"response,omitempty" json:"response,omitempty"`
	Error          string        `bson:"error,omitempty" json:"error,omitempty"`
	Revenue        *float64      `bson:"revenue,omitempty" json:"revenue,omitempty"`
	Payout         *float64      `bson:"payout,omitempty" json:"payout,omitempty"`
	Timestamp      time.Time     `bson:"timestamp" json:"timestamp"`
}

type SyncLogRepository interface {
	Append(ctx context.Context, entry *SyncLogEntry) error
	GetByRecordID(ctx context.Context, recordID string, limit int) ([]SyncLogEntry, error)
	GetByCallerID(ctx context.Context, callerID string, limit int) ([]SyncLogEntry, error)
	GetByStatus(ctx context.Context, status SyncStatus, from, to time.Time) ([]SyncLogEntry, error)
	EnsureIndexes(ctx context.Context) error
}

func newSyncLogEntry(record *CallRecord, eventType SyncEventType, status SyncStatus) *SyncLogEntry {
	return &SyncLogEntry{
		ID:             uuid.NewString(),
		RecordID:       record.ID,
		CallerID:       record.CallerID,
		PlatformCallID: record.PlatformCallID,
		EventType:      eventType,
		Status:         status,
		Timestamp:      time.Now(),
	}
}

func NewSyncSuccessLog(record *CallRecord, requests []string, response string, revenue, payout float64) *SyncLogEntry {
	entry := newSyncLogEntry(record, EventSyncSuccess, SyncSuccess)
	entry.Requests = requests
	entry.Response = response
	entry.Revenue = &revenue
	entry.Payout = &payout
	return entry
}

// NewSyncSkippedLog records the short-circuit path: the platform payout
// already matches the recorded one, so no write was issued.
func NewSyncSkippedLog(record *CallRecord, platformPayout float64) *SyncLogEntry {
	entry := newSyncLogEntry(record, EventSyncSkippedMatches, SyncSuccess)
	entry.Revenue = &platformPayout
	entry.Payout = &platformPayout
	return entry
}

func NewSyncNotFoundLog(record *CallRecord) *SyncLogEntry {
	return newSyncLogEntry(record, EventSyncNotFound, SyncNotFound)
}

func NewSyncCannotSyncLog(record *CallRecord, reason string) *SyncLogEntry {
	entry := newSyncLogEntry(record, EventSyncCannotSync, SyncCannotSync)
	entry.Error = reason
	return entry
}

func NewSyncFailedLog(record *CallRecord, stage string, requests []string, response string, err error) *SyncLogEntry {
	entry := newSyncLogEntry(record, EventSyncFailed, SyncFailed)
	entry.Stage = stage
	entry.Requests = requests
	entry.Response = response
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

// NewRevenueSkippedLog records the partial-success path: the payout write
// landed but the revenue write was rejected because its leg never connected.
func NewRevenueSkippedLog(record *CallRecord, requests []string, response string, payout float64) *SyncLogEntry {
	entry := newSyncLogEntry(record, EventRevenueSkipped, SyncSuccess)
	entry.Requests = requests
	entry.Response = response
	entry.Payout = &payout
	return entry
}

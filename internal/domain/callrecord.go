package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound      = errors.New("call record not found")
	ErrRecordAlreadyExists = errors.New("call record already exists")
	ErrInvalidCallerID     = errors.New("caller identifier is empty or anonymous")
)

// TrafficCategory is the inbound-routing mechanism a call arrived through.
// The two categories carry different sync-eligibility rules: static records
// are only re-synced while non-terminal, api records are re-validated on
// every pass because their authoritative price lives on the platform.
type TrafficCategory string

const (
	CategoryStatic TrafficCategory = "static"
	CategoryAPI    TrafficCategory = "api"
)

// SyncStatus is the lifecycle state of a record's reconciliation against
// the billing platform.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncSuccess    SyncStatus = "success"
	SyncNotFound   SyncStatus = "not_found"
	SyncCannotSync SyncStatus = "cannot_sync"
	SyncFailed     SyncStatus = "failed"
)

// Terminal reports whether the status is never retried for static traffic.
// Success is not terminal for api traffic; that exception lives in the
// reconciliation policy, not here.
func (s SyncStatus) Terminal() bool {
	return s == SyncSuccess || s == SyncCannotSync
}

type CallRecord struct {
	ID            string          `bson:"_id" json:"id"`
	CallerID      string          `bson:"caller_id" json:"callerId"`
	CallAt        time.Time       `bson:"call_at" json:"callAt"`
	CallMinute    time.Time       `bson:"call_minute" json:"-"`
	CampaignPhone string          `bson:"campaign_phone" json:"campaignPhone"`
	Category      TrafficCategory `bson:"category" json:"category"`

	Payout  *float64 `bson:"payout,omitempty" json:"payout,omitempty"`
	Revenue *float64 `bson:"revenue,omitempty" json:"revenue,omitempty"`

	AdjustedAt         *time.Time `bson:"adjusted_at,omitempty" json:"adjustedAt,omitempty"`
	AdjustmentAmount   *float64   `bson:"adjustment_amount,omitempty" json:"adjustmentAmount,omitempty"`
	AdjustmentClass    string     `bson:"adjustment_class,omitempty" json:"adjustmentClass,omitempty"`
	AdjustmentDuration *int       `bson:"adjustment_duration,omitempty" json:"adjustmentDuration,omitempty"`

	PlatformCallID string     `bson:"platform_call_id,omitempty" json:"platformCallId,omitempty"`
	SyncStatus     SyncStatus `bson:"sync_status" json:"syncStatus"`
	SyncedAt       *time.Time `bson:"synced_at,omitempty" json:"syncedAt,omitempty"`
	LastResponse   string     `bson:"last_response,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type CallRecordRepository interface {
	Insert(ctx context.Context, record *CallRecord) error
	GetByID(ctx context.Context, id string) (*CallRecord, error)
	FindByCallerOnDay(ctx context.Context, callerID string, day time.Time) ([]CallRecord, error)
	FindByStatus(ctx context.Context, statuses []SyncStatus, limit int64) ([]CallRecord, error)
	FindSyncable(ctx context.Context, category TrafficCategory, statuses []SyncStatus, onlyPendingAdjustment bool, limit int64) ([]CallRecord, error)
	AttachAdjustment(ctx context.Context, id string, adjustment *AdjustmentRecord) error
	SetPlatformCallID(ctx context.Context, id string, platformCallID string) error
	MarkPending(ctx context.Context, id string) error
	UpdateSyncResult(ctx context.Context, id string, status SyncStatus, responseBlob string, syncedAt time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewCallRecord(callerID string, callAt time.Time, campaignPhone string, payout *float64, category TrafficCategory) *CallRecord {
	return &CallRecord{
		ID:            uuid.NewString(),
		CallerID:      callerID,
		CallAt:        callAt,
		CallMinute:    callAt.Truncate(time.Minute),
		CampaignPhone: campaignPhone,
		Category:      category,
		Payout:        payout,
		SyncStatus:    SyncPending,
		CreatedAt:     time.Now(),
	}
}

// HasValidCaller reports whether the record carries a caller identifier the
// platform can be queried with. Blocked callers surface as "anonymous".
func (r *CallRecord) HasValidCaller() bool {
	caller := strings.TrimSpace(r.CallerID)
	return caller != "" && !strings.EqualFold(caller, "anonymous")
}

// HasPendingAdjustment reports whether an adjustment was recorded after the
// last successful sync, meaning the platform has not seen it yet.
func (r *CallRecord) HasPendingAdjustment() bool {
	if r.AdjustedAt == nil {
		return false
	}
	return r.SyncedAt == nil || r.SyncedAt.Before(*r.AdjustedAt)
}

package messaging

import (
	"time"

	"github.com/ringledger/callsync/internal/domain"
)

const (
	IngestQueue      = "ingest"
	SyncResultsQueue = "sync_results"
	DeadLetterQueue  = "dead_letter_queue"
)

// ScrapedCall is one normalized row from the affiliate portal's call table.
type ScrapedCall struct {
	CallerID      string    `json:"callerId"`
	CallAt        time.Time `json:"callAt"`
	CampaignPhone string    `json:"campaignPhone"`
	Payout        *float64  `json:"payout,omitempty"`
	Category      string    `json:"category"`
}

// ScrapedAdjustment is one normalized row from the portal's adjustments
// table.
type ScrapedAdjustment struct {
	CallSID    string    `json:"callSid"`
	CallerID   string    `json:"callerId"`
	CallAt     time.Time `json:"callAt"`
	AdjustedAt time.Time `json:"adjustedAt"`
	Amount     float64   `json:"amount"`
	Class      string    `json:"class"`
	Duration   int       `json:"duration"`
}

type CallBatchData struct {
	Calls []ScrapedCall `json:"calls"`
}

type AdjustmentBatchData struct {
	Adjustments []ScrapedAdjustment `json:"adjustments"`
}

type SyncResultData struct {
	RecordID  string               `json:"recordId"`
	CallerID  string               `json:"callerId"`
	Status    domain.SyncStatus    `json:"status"`
	EventType domain.SyncEventType `json:"eventType"`
	Revenue   *float64             `json:"revenue,omitempty"`
	Payout    *float64             `json:"payout,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

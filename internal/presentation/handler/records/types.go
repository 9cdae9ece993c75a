package records

import (
	"time"

	"github.com/ringledger/callsync/internal/domain"
)

// recordResponse represents one call record in API responses
type recordResponse struct {
	ID             string     `json:"id"`
	CallerID       string     `json:"callerId"`
	CallAt         time.Time  `json:"callAt"`
	CampaignPhone  string     `json:"campaignPhone"`
	Category       string     `json:"category"`
	Payout         *float64   `json:"payout,omitempty"`
	AdjustedAt     *time.Time `json:"adjustedAt,omitempty"`
	AdjustmentAmt  *float64   `json:"adjustmentAmount,omitempty"`
	PlatformCallID string     `json:"platformCallId,omitempty"`
	SyncStatus     string     `json:"syncStatus"`
	SyncedAt       *time.Time `json:"syncedAt,omitempty"`
}

type listRecordsResponse struct {
	Records []recordResponse `json:"records"`
}

func toRecordResponse(record *domain.CallRecord) recordResponse {
	return recordResponse{
		ID:             record.ID,
		CallerID:       record.CallerID,
		CallAt:         record.CallAt,
		CampaignPhone:  record.CampaignPhone,
		Category:       string(record.Category),
		Payout:         record.Payout,
		AdjustedAt:     record.AdjustedAt,
		AdjustmentAmt:  record.AdjustmentAmount,
		PlatformCallID: record.PlatformCallID,
		SyncStatus:     string(record.SyncStatus),
		SyncedAt:       record.SyncedAt,
	}
}

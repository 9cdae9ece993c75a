package synclogs

import (
	"time"

	"github.com/ringledger/callsync/internal/domain"
)

// syncLogResponse represents one audit entry in API responses
type syncLogResponse struct {
	ID             string    `json:"id"`
	RecordID       string    `json:"recordId"`
	CallerID       string    `json:"callerId"`
	PlatformCallID string    `json:"platformCallId,omitempty"`
	EventType      string    `json:"eventType"`
	Status         string    `json:"status"`
	Stage          string    `json:"stage,omitempty"`
	Requests       []string  `json:"requests,omitempty"`
	Response       string    `json:"response,omitempty"`
	Error          string    `json:"error,omitempty"`
	Revenue        *float64  `json:"revenue,omitempty"`
	Payout         *float64  `json:"payout,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type listSyncLogsResponse struct {
	Entries []syncLogResponse `json:"entries"`
}

func toListResponse(entries []domain.SyncLogEntry) listSyncLogsResponse {
	resp := listSyncLogsResponse{Entries: make([]syncLogResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, syncLogResponse{
			ID:             entry.ID,
			RecordID:       entry.RecordID,
			CallerID:       entry.CallerID,
			PlatformCallID: entry.PlatformCallID,
			EventType:      string(entry.EventType),
			Status:         string(entry.Status),
			Stage:          entry.Stage,
			Requests:       entry.Requests,
			Response:       entry.Response,
			Error:          entry.Error,
			Revenue:        entry.Revenue,
			Payout:         entry.Payout,
			Timestamp:      entry.Timestamp,
		})
	}
	return resp
}

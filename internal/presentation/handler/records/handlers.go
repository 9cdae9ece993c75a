package records

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/json"
)

const defaultListLimit = 100

type Handler struct {
	records domain.CallRecordRepository
}

func NewHandler(records domain.CallRecordRepository) *Handler {
	return &Handler{
		records: records,
	}
}

// GetRecordHandler returns one call record by id.
func (h *Handler) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordId")
	if recordID == "" {
		json.WriteValidationError(w, errors.New("record ID is missing"))
		return
	}

	record, err := h.records.GetByID(r.Context(), recordID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		json.WriteNotFoundError(w, "Call record not found")
		return
	}
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, toRecordResponse(record))
}

// ListRecordsHandler returns call records filtered by sync status.
func (h *Handler) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	records, err := h.records.FindByStatus(r.Context(), statuses, defaultListLimit)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	resp := listRecordsResponse{Records: make([]recordResponse, 0, len(records))}
	for i := range records {
		resp.Records = append(resp.Records, toRecordResponse(&records[i]))
	}

	json.Write(w, http.StatusOK, resp)
}

var allStatuses = []domain.SyncStatus{
	domain.SyncPending,
	domain.SyncSuccess,
	domain.SyncNotFound,
	domain.SyncCannotSync,
	domain.SyncFailed,
}

func parseStatuses(raw string) ([]domain.SyncStatus, error) {
	if raw == "" {
		return allStatuses, nil
	}

	var statuses []domain.SyncStatus
	for _, part := range strings.Split(raw, ",") {
		status := domain.SyncStatus(strings.TrimSpace(part))
		valid := false
		for _, known := range allStatuses {
			if status == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, errors.New("unknown sync status: " + string(status))
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

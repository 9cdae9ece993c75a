package synclogs

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/json"
)

const defaultListLimit = 100

type Handler struct {
	logs domain.SyncLogRepository
}

func NewHandler(logs domain.SyncLogRepository) *Handler {
	return &Handler{
		logs: logs,
	}
}

// ListByRecordHandler returns the audit trail of one call record, newest
// first.
func (h *Handler) ListByRecordHandler(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordId")
	if recordID == "" {
		json.WriteValidationError(w, errors.New("record ID is missing"))
		return
	}

	entries, err := h.logs.GetByRecordID(r.Context(), recordID, defaultListLimit)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, toListResponse(entries))
}

// ListHandler returns audit entries filtered by caller id, or by status and
// time range.
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if callerID := query.Get("callerId"); callerID != "" {
		entries, err := h.logs.GetByCallerID(r.Context(), callerID, defaultListLimit)
		if err != nil {
			json.WriteInternalError(w, err)
			return
		}
		json.Write(w, http.StatusOK, toListResponse(entries))
		return
	}

	status := domain.SyncStatus(query.Get("status"))
	if status == "" {
		json.WriteValidationError(w, errors.New("callerId or status query parameter is required"))
		return
	}

	from, to, err := parseTimeRange(query.Get("from"), query.Get("to"))
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	entries, err := h.logs.GetByStatus(r.Context(), status, from, to)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, toListResponse(entries))
}

func parseTimeRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()

	if rawFrom != "" {
		parsed, err := time.Parse(time.RFC3339, rawFrom)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from timestamp, expected RFC3339")
		}
		from = parsed
	}

	if rawTo != "" {
		parsed, err := time.Parse(time.RFC3339, rawTo)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to timestamp, expected RFC3339")
		}
		to = parsed
	}

	return from, to, nil
}

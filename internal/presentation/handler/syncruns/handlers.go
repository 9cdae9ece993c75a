package syncruns

import (
	"errors"
	"net/http"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/infrastructure/jobs"
	"github.com/ringledger/callsync/internal/infrastructure/json"
)

type Handler struct {
	runner *jobs.SyncRunner
}

func NewHandler(runner *jobs.SyncRunner) *Handler {
	return &Handler{
		runner: runner,
	}
}

// TriggerRunHandler starts one sync pass for a category outside the
// schedule. Returns 409 when a run is already in progress.
func (h *Handler) TriggerRunHandler(w http.ResponseWriter, r *http.Request) {
	var req triggerRunRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	category := domain.TrafficCategory(req.Category)
	if category != domain.CategoryStatic && category != domain.CategoryAPI {
		json.WriteValidationError(w, errors.New("category must be static or api"))
		return
	}

	summary, err := h.runner.RunOnce(r.Context(), category)
	if errors.Is(err, jobs.ErrRunInProgress) {
		json.WriteError(w, http.StatusConflict, err, "A sync run is already in progress")
		return
	}
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, triggerRunResponse{
		Category: req.Category,
		Synced:   summary.Synced,
		Skipped:  summary.Skipped,
		Failed:   summary.Failed,
	})
}

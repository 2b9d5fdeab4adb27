package api

import (
	"context"
	"net/http"

	"github.com/okian/arsteady/internal/domain/types"
)

// TargetDependencies defines the interface for target reads and clicks.
type TargetDependencies interface {
	Targets(ctx context.Context) ([]TargetView, error)
	Target(ctx context.Context, target int) (TargetView, error)
	Click(ctx context.Context, target int) (types.ClickResult, error)
}

// TargetsHandler handles target requests.
type TargetsHandler struct {
	deps TargetDependencies
}

// NewTargetsHandler creates a new targets handler.
func NewTargetsHandler(deps TargetDependencies) *TargetsHandler {
	return &TargetsHandler{deps: deps}
}

// HandleListTargets handles GET /targets requests.
func (h *TargetsHandler) HandleListTargets(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_targets"
	views, err := h.deps.Targets(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetTarget handles GET /targets/{id} requests.
func (h *TargetsHandler) HandleGetTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_target"
	id, err := targetID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	view, err := h.deps.Target(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleClick handles POST /targets/{id}/click requests.
func (h *TargetsHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	const op = "api.click"
	id, err := targetID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	res, err := h.deps.Click(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

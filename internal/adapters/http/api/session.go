package api

import (
	"context"
	"net/http"

	"github.com/okian/arsteady/internal/domain/types"
)

// SessionDependencies defines the interface for session control.
type SessionDependencies interface {
	Session() types.Session
	Pause(ctx context.Context) (types.Session, error)
	Resume(ctx context.Context) (types.Session, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleGetSession handles GET /session requests.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Session())
}

// HandlePause handles POST /session/pause requests.
func (h *SessionHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Pause(r.Context())
	if err != nil {
		writeFailure(w, "api.pause", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleResume handles POST /session/resume requests.
func (h *SessionHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Resume(r.Context())
	if err != nil {
		writeFailure(w, "api.resume", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

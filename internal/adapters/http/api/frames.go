package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/arsteady/internal/domain/model"
)

const maxFrameBody = 64 << 10

// FrameDependencies defines the interface for frame ingestion.
type FrameDependencies interface {
	// Ingest dedupes and queues a frame. It reports whether the frame was
	// a redelivery.
	Ingest(ctx context.Context, f model.Frame) (bool, error)
}

// FramesHandler handles frame requests.
type FramesHandler struct {
	deps FrameDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// frameRequest is the body of POST /frames.
type frameRequest struct {
	EventID  string      `json:"event_id"`
	TargetID *int        `json:"target_id"`
	Signal   string      `json:"signal"`
	Pose     *model.Pose `json:"pose"`
	TS       string      `json:"ts"`
}

func (f frameRequest) toFrame() (model.Frame, error) {
	if f.TargetID == nil {
		return model.Frame{}, errors.New("missing target_id")
	}
	if strings.TrimSpace(f.Signal) == "" {
		return model.Frame{}, errors.New("missing signal")
	}
	sig, err := model.ParseSignal(f.Signal)
	if err != nil {
		return model.Frame{}, err
	}

	frame := model.Frame{
		EventID:  strings.TrimSpace(f.EventID),
		TargetID: *f.TargetID,
		Signal:   sig,
	}
	if f.Pose != nil && !f.Pose.IsEmpty() {
		if err := f.Pose.Validate(); err != nil {
			return model.Frame{}, err
		}
		p := f.Pose.Clone()
		frame.Pose = &p
	}
	if strings.TrimSpace(f.TS) != "" {
		ts, err := time.Parse(time.RFC3339, f.TS)
		if err != nil {
			return model.Frame{}, errors.New("invalid ts; must be RFC3339")
		}
		frame.TS = ts
	}
	return frame, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostFrame handles POST /frames requests.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"

	var req frameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	frame, err := req.toFrame()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	dup, err := h.deps.Ingest(r.Context(), frame)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}

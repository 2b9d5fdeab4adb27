// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/arsteady/internal/app"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/tracking"
	"github.com/okian/arsteady/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	FrameDependencies
	TargetDependencies
	SessionDependencies
	StreamDependencies
}

// TargetView mirrors the read shape returned by target queries.
type TargetView = types.TargetView

// Server wires HTTP routes for the tracking API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	framesHandler  *FramesHandler
	targetsHandler *TargetsHandler
	sessionHandler *SessionHandler
	streamHandler  *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		framesHandler:  NewFramesHandler(deps),
		targetsHandler: NewTargetsHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		streamHandler:  NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /frames", MetricsMiddleware(s.framesHandler.HandlePostFrame, "frames"))
	mux.HandleFunc("GET /targets", MetricsMiddleware(s.targetsHandler.HandleListTargets, "targets"))
	mux.HandleFunc("GET /targets/{id}", MetricsMiddleware(s.targetsHandler.HandleGetTarget, "target"))
	mux.HandleFunc("POST /targets/{id}/click", MetricsMiddleware(s.targetsHandler.HandleClick, "click"))
	mux.HandleFunc("GET /session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("POST /session/pause", MetricsMiddleware(s.sessionHandler.HandlePause, "pause"))
	mux.HandleFunc("POST /session/resume", MetricsMiddleware(s.sessionHandler.HandleResume, "resume"))
	mux.HandleFunc("GET /scene/stream", MetricsMiddleware(s.streamHandler.HandleStream, "stream"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates an upstream error into a status code and writes it.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tracking.ErrUnknownTarget):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, model.ErrUnknownSignal), errors.Is(err, model.ErrInvalidPose), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrPaused):
		writeError(w, http.StatusConflict, "paused", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// targetID reads the {id} path value.
func targetID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, ErrBadRequest
	}
	return id, nil
}

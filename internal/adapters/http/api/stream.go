package api

import "net/http"

// StreamDependencies defines the interface for the scene stream.
type StreamDependencies interface {
	ServeStream(w http.ResponseWriter, r *http.Request)
}

// StreamHandler upgrades GET /scene/stream to a WebSocket.
type StreamHandler struct {
	deps StreamDependencies
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /scene/stream requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	h.deps.ServeStream(w, r)
}

// Package stream pushes overlay scene commands to browser clients over
// WebSocket. The Hub is a tracking renderer: every visibility change, pose,
// animation and haptic pulse the orchestrator issues is broadcast as one JSON
// command per message.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/tracking"
	"github.com/okian/arsteady/pkg/logger"
	"github.com/okian/arsteady/pkg/metrics"
)

const (
	writeWait         = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = (defaultPongWait * 9) / 10
	maxMessageSize    = 512
	defaultSendBuffer = 256
)

// Command types.
const (
	CommandState         = "state"
	CommandPose          = "pose"
	CommandVisible       = "visible"
	CommandAnimate       = "animate"
	CommandStopAnimation = "stop_animation"
	CommandPulse         = "pulse"
)

// Command is one scene update sent to clients.
type Command struct {
	Type       string           `json:"type"`
	Target     *int             `json:"target,omitempty"`
	Pose       *model.Pose      `json:"pose,omitempty"`
	Visible    *bool            `json:"visible,omitempty"`
	Animation  *model.Animation `json:"animation,omitempty"`
	Name       string           `json:"name,omitempty"`
	DurationMS int64            `json:"duration_ms,omitempty"`
	State      any              `json:"state,omitempty"`
	TS         time.Time        `json:"ts"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans commands out to them. Clients whose
// send buffer is full are disconnected.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup

	sendBuffer   int
	pingPeriod   time.Duration
	pongWait     time.Duration
	initialState func() any

	logger logger.Logger
}

var (
	_ tracking.Renderer = (*Hub)(nil)
	_ tracking.Animator = (*Hub)(nil)
	_ tracking.Haptics  = (*Hub)(nil)
	_ http.Handler      = (*Hub)(nil)
)

// NewHub creates a hub with no clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		sendBuffer: defaultSendBuffer,
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	if !h.add(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	h.logger.Info(r.Context(), "stream client connected", logger.Int("clients", h.ClientCount()))

	// The snapshot is taken after registration: any broadcast it misses
	// reaches the client directly, and any it overtakes is older.
	if h.initialState != nil {
		if data, err := encode(Command{Type: CommandState, State: h.initialState()}); err == nil {
			h.sendTo(c, data)
		}
	}

	go h.writePump(c)
	go h.readPump(c)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	metrics.UpdateStreamClients(0)
	h.wg.Wait()
	return nil
}

func (h *Hub) ApplyPose(_ context.Context, target int, pose model.Pose) error {
	return h.broadcast(Command{Type: CommandPose, Target: &target, Pose: &pose})
}

func (h *Hub) SetVisible(_ context.Context, target int, visible bool) error {
	return h.broadcast(Command{Type: CommandVisible, Target: &target, Visible: &visible})
}

func (h *Hub) Animate(_ context.Context, target int, anim model.Animation) error {
	return h.broadcast(Command{Type: CommandAnimate, Target: &target, Animation: &anim, Name: anim.Name})
}

func (h *Hub) StopAnimation(_ context.Context, target int, name string) error {
	return h.broadcast(Command{Type: CommandStopAnimation, Target: &target, Name: name})
}

func (h *Hub) Pulse(_ context.Context, d time.Duration) error {
	return h.broadcast(Command{Type: CommandPulse, DurationMS: d.Milliseconds()})
}

func (h *Hub) broadcast(cmd Command) error {
	data, err := encode(cmd)
	if err != nil {
		return err
	}

	var slow []*client
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	for c := range h.clients {
		select {
		case c.send <- data:
			metrics.RecordStreamMessage()
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		if h.remove(c) {
			metrics.RecordStreamClientDropped()
			h.logger.Warn(context.Background(), "dropped slow stream client")
		}
	}
	return nil
}

// sendTo queues data for c unless c has already been removed. A full
// buffer drops the message; the client is then too slow to keep anyway.
func (h *Hub) sendTo(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
		metrics.RecordStreamMessage()
	default:
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	metrics.UpdateStreamClients(len(h.clients))
	return true
}

// remove unregisters c and closes its send channel. It reports whether c was
// still registered.
func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	metrics.UpdateStreamClients(len(h.clients))
	return true
}

func (h *Hub) writePump(c *client) {
	defer h.wg.Done()
	defer func() { _ = c.conn.Close() }()

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump only services control frames; clients have nothing to say.
func (h *Hub) readPump(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn(context.Background(), "stream client read failed", logger.Error(err))
			}
			return
		}
	}
}

func encode(cmd Command) ([]byte, error) {
	if cmd.TS.IsZero() {
		cmd.TS = time.Now().UTC()
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("stream: encode %s: %w", cmd.Type, err)
	}
	return data, nil
}

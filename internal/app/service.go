// Package service wires the tracking orchestrator to frame ingestion, the
// in-memory scene and the scene stream, and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/arsteady/internal/adapters/http/stream"
	eventqueue "github.com/okian/arsteady/internal/adapters/mq/queue"
	"github.com/okian/arsteady/internal/adapters/mq/worker"
	"github.com/okian/arsteady/internal/adapters/scene"
	"github.com/okian/arsteady/internal/domain/dedupe"
	"github.com/okian/arsteady/internal/domain/gate"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/smoothing"
	"github.com/okian/arsteady/internal/domain/tracking"
	"github.com/okian/arsteady/internal/domain/types"
	"github.com/okian/arsteady/pkg/logger"
	"github.com/okian/arsteady/pkg/metrics"
)

const drainTimeout = 5 * time.Second

// Service implements the API dependencies for the overlay tracker.
type Service struct {
	mu sync.RWMutex

	// Core components
	orchestrator *tracking.Orchestrator
	scene        *scene.Scene
	hub          *stream.Hub
	deduper      dedupe.Deduper
	frameQueue   *eventqueue.InMemoryQueue
	dispatcher   *worker.Dispatcher

	// trackMu serialises every orchestrator call.
	trackMu sync.Mutex
	// admitMu makes recording an id and queueing its frame one step, so a
	// concurrent redelivery never sees an id whose frame is not queued.
	admitMu sync.Mutex

	// Configuration
	targetCount            int
	unmounted              []int
	queueSize              int
	dedupeSize             int
	lossToleranceFrames    uint
	minConfidenceThreshold float64
	stabilityFrames        uint
	smoothingFactor        float64
	hapticPulse            time.Duration

	// State
	started bool
	paused  atomic.Bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		targetCount:            1,
		queueSize:              4096,
		dedupeSize:             65_536,
		lossToleranceFrames:    8,
		minConfidenceThreshold: 0.5,
		stabilityFrames:        3,
		smoothingFactor:        0.7,
		hapticPulse:            50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the tracking pipeline and starts the dispatcher. It fails
// when the gate or smoother configuration is invalid.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting tracking service...")

	g, err := gate.New(
		gate.WithLossToleranceFrames(s.lossToleranceFrames),
		gate.WithMinConfidenceThreshold(s.minConfidenceThreshold),
		gate.WithStabilityFrames(s.stabilityFrames),
	)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	sm, err := smoothing.New(smoothing.WithSmoothingFactor(s.smoothingFactor))
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	mounted := make([]int, 0, s.targetCount)
	for i := 0; i < s.targetCount; i++ {
		if !slices.Contains(s.unmounted, i) {
			mounted = append(mounted, i)
		}
	}
	s.scene = scene.New(scene.WithMounted(mounted...), scene.WithLogger(s.logger.Named("scene")))
	s.hub = stream.NewHub(
		stream.WithLogger(s.logger.Named("stream")),
		stream.WithInitialState(func() any { return s.views() }),
	)

	orch, err := tracking.New(s.targetCount, tracking.Fanout{s.scene, s.hub},
		tracking.WithGate(g),
		tracking.WithSmoother(sm),
		tracking.WithHapticPulse(s.hapticPulse),
		tracking.WithLogger(s.logger.Named("tracking")),
	)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.orchestrator = orch

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.frameQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.dispatcher = worker.NewDispatcher(s.frameQueue, worker.HandlerFunc(s.HandleFrame),
		worker.WithLogger(s.logger),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.dispatcher.Run(runCtx)

	s.paused.Store(false)
	metrics.UpdateVisibleTargets(0)
	s.started = true
	s.logger.Info(ctx, "tracking service started",
		logger.Int("targets", s.targetCount),
		logger.Int("mounted", len(mounted)),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Uint("lossToleranceFrames", s.lossToleranceFrames),
		logger.Float64("smoothingFactor", s.smoothingFactor),
	)
	return nil
}

// Stop closes the queue, lets the dispatcher drain it and disconnects
// stream clients.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping tracking service...")

	_ = s.frameQueue.Close()
	select {
	case <-s.dispatcher.Done():
	case <-time.After(drainTimeout):
		s.logger.Warn(ctx, "frame queue did not drain in time", logger.Int("remaining", s.frameQueue.Len(ctx)))
		s.cancel()
		shutdownCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "dispatcher shutdown failed", logger.Error(err))
		}
		cancel()
	}
	s.cancel()
	_ = s.hub.Close()

	s.started = false
	s.logger.Info(ctx, "tracking service stopped")
}

// Ingest validates a frame, drops redeliveries and queues it. It reports
// whether the frame was a duplicate. A missing event ID is filled in.
func (s *Service) Ingest(ctx context.Context, f model.Frame) (bool, error) { //nolint:gocritic // hugeParam: frames travel by value
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false, ErrNotStarted
	}
	if s.paused.Load() {
		metrics.RecordFrameDropped("paused")
		return false, ErrPaused
	}
	if f.TargetID < 0 || f.TargetID >= s.targetCount {
		return false, fmt.Errorf("%w: %d", tracking.ErrUnknownTarget, f.TargetID)
	}
	sig, err := model.ParseSignal(string(f.Signal))
	if err != nil {
		return false, err
	}
	f.Signal = sig
	if f.Pose != nil {
		if err := f.Pose.Validate(); err != nil {
			return false, err
		}
	}

	if f.EventID == "" {
		f.EventID = uuid.NewString()
	}
	if f.TS.IsZero() {
		f.TS = time.Now()
	}

	dup, err := s.admit(ctx, f)
	switch {
	case err != nil:
		metrics.RecordFrameDropped("backpressure")
		return false, fmt.Errorf("%w: %w", ErrBackpressure, err)
	case dup:
		metrics.RecordFrameDuplicate()
		s.logger.Debug(ctx, "duplicate frame detected, skipping",
			logger.String("eventID", f.EventID),
			logger.Int("target", f.TargetID),
		)
		return true, nil
	}
	metrics.RecordFrameIngested()
	return false, nil
}

// admit records the frame's id and queues it. An id whose frame could not
// be queued is forgotten again so the sender can retry it. Enqueue never
// blocks, so holding admitMu across it is cheap.
func (s *Service) admit(ctx context.Context, f model.Frame) (bool, error) { //nolint:gocritic // hugeParam: frames travel by value
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if s.deduper.SeenAndRecord(ctx, f.EventID) {
		return true, nil
	}
	if err := s.frameQueue.Enqueue(ctx, f); err != nil {
		s.deduper.Unrecord(ctx, f.EventID)
		return false, err
	}
	return false, nil
}

// HandleFrame applies one frame to the orchestrator. Frames that reach it
// while the session is paused are dropped.
func (s *Service) HandleFrame(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	s.trackMu.Lock()
	defer s.trackMu.Unlock()

	if s.paused.Load() {
		metrics.RecordFrameDropped("paused")
		return nil
	}
	return s.orchestrator.HandleFrame(ctx, f)
}

// Click forwards a tap on a target's overlay.
func (s *Service) Click(ctx context.Context, target int) (types.ClickResult, error) {
	if err := s.ready(); err != nil {
		return types.ClickResult{}, err
	}

	s.trackMu.Lock()
	defer s.trackMu.Unlock()

	ok, err := s.orchestrator.Click(ctx, target)
	if err != nil {
		return types.ClickResult{}, err
	}
	return types.ClickResult{Target: target, Accepted: ok}, nil
}

// Pause stops applying frames until Resume.
func (s *Service) Pause(ctx context.Context) (types.Session, error) {
	if err := s.ready(); err != nil {
		return types.Session{}, err
	}
	if !s.paused.Swap(true) {
		s.logger.Info(ctx, "session paused")
	}
	return s.Session(), nil
}

// Resume restarts frame processing.
func (s *Service) Resume(ctx context.Context) (types.Session, error) {
	if err := s.ready(); err != nil {
		return types.Session{}, err
	}
	if s.paused.Swap(false) {
		s.logger.Info(ctx, "session resumed")
	}
	return s.Session(), nil
}

// Session returns the session state.
func (s *Service) Session() types.Session {
	out := types.Session{
		Paused:      s.paused.Load(),
		TargetCount: s.targetCount,
	}
	if s.ready() == nil {
		s.trackMu.Lock()
		out.VisibleTargets = s.orchestrator.Visible()
		s.trackMu.Unlock()
	}
	return out
}

// Targets returns a view of every target.
func (s *Service) Targets(_ context.Context) ([]types.TargetView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.views(), nil
}

// Target returns a view of one target.
func (s *Service) Target(_ context.Context, target int) (types.TargetView, error) {
	if err := s.ready(); err != nil {
		return types.TargetView{}, err
	}

	s.trackMu.Lock()
	snap, err := s.orchestrator.Snapshot(target)
	s.trackMu.Unlock()
	if err != nil {
		return types.TargetView{}, err
	}
	return s.view(snap), nil
}

// ServeStream upgrades r to a scene stream connection.
func (s *Service) ServeStream(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hub := s.hub
	started := s.started
	s.mu.RUnlock()

	if !started {
		http.Error(w, ErrNotStarted.Error(), http.StatusServiceUnavailable)
		return
	}
	hub.ServeHTTP(w, r)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":                s.started,
		"paused":                 s.paused.Load(),
		"targetCount":            s.targetCount,
		"queueSize":              s.queueSize,
		"dedupeSize":             s.dedupeSize,
		"lossToleranceFrames":    s.lossToleranceFrames,
		"minConfidenceThreshold": s.minConfidenceThreshold,
		"stabilityFrames":        s.stabilityFrames,
		"smoothingFactor":        s.smoothingFactor,
	}

	if s.started {
		s.trackMu.Lock()
		visible := s.orchestrator.Visible()
		s.trackMu.Unlock()

		queueLen := s.frameQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["visibleTargets"] = visible
		stats["dedupeEntries"] = s.deduper.Size()
		stats["streamClients"] = s.hub.ClientCount()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateVisibleTargets(visible)
	}
	return stats
}

// ready reports ErrNotStarted until Start has succeeded.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) views() []types.TargetView {
	s.trackMu.Lock()
	snaps := s.orchestrator.Snapshots()
	s.trackMu.Unlock()

	out := make([]types.TargetView, len(snaps))
	for i, snap := range snaps {
		out[i] = s.view(snap)
	}
	return out
}

func (s *Service) view(snap tracking.Snapshot) types.TargetView {
	v := types.TargetView{
		Target:     snap.Target,
		Visibility: snap.Visibility,
		Gate:       snap.Gate,
		Smoothing:  snap.Smoothing,
		Pose:       snap.Pose,
	}
	if e, ok := s.scene.Entity(snap.Target); ok {
		v.Mounted = true
		for name := range e.Animations {
			v.Animations = append(v.Animations, name)
		}
		sort.Strings(v.Animations)
	}
	return v
}

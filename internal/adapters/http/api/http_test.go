package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/okian/arsteady/internal/adapters/http/api"
	service "github.com/okian/arsteady/internal/app"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/tracking"
	"github.com/okian/arsteady/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records ingested frames and serves canned views.
type mockDependencies struct {
	mu        sync.Mutex
	frames    []model.Frame
	seen      map[string]bool
	ingestErr error
	paused    bool
	views     []types.TargetView
	clicks    []int
}

func newMockDependencies(targets int) *mockDependencies {
	m := &mockDependencies{seen: make(map[string]bool)}
	for i := 0; i < targets; i++ {
		m.views = append(m.views, types.TargetView{Target: i, Visibility: "hidden", Mounted: true})
	}
	return m
}

func (m *mockDependencies) Ingest(_ context.Context, f model.Frame) (bool, error) { //nolint:gocritic // hugeParam: frames travel by value
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ingestErr != nil {
		return false, m.ingestErr
	}
	if f.TargetID < 0 || f.TargetID >= len(m.views) {
		return false, fmt.Errorf("%w: %d", tracking.ErrUnknownTarget, f.TargetID)
	}
	if f.EventID != "" && m.seen[f.EventID] {
		return true, nil
	}
	m.seen[f.EventID] = true
	m.frames = append(m.frames, f)
	return false, nil
}

func (m *mockDependencies) Targets(context.Context) ([]types.TargetView, error) {
	return m.views, nil
}

func (m *mockDependencies) Target(_ context.Context, target int) (types.TargetView, error) {
	if target < 0 || target >= len(m.views) {
		return types.TargetView{}, fmt.Errorf("%w: %d", tracking.ErrUnknownTarget, target)
	}
	return m.views[target], nil
}

func (m *mockDependencies) Click(_ context.Context, target int) (types.ClickResult, error) {
	if target < 0 || target >= len(m.views) {
		return types.ClickResult{}, fmt.Errorf("%w: %d", tracking.ErrUnknownTarget, target)
	}
	m.clicks = append(m.clicks, target)
	return types.ClickResult{Target: target, Accepted: m.views[target].Visible()}, nil
}

func (m *mockDependencies) Session() types.Session {
	return types.Session{Paused: m.paused, TargetCount: len(m.views)}
}

func (m *mockDependencies) Pause(context.Context) (types.Session, error) {
	m.paused = true
	return m.Session(), nil
}

func (m *mockDependencies) Resume(context.Context) (types.Session, error) {
	m.paused = false
	return m.Session(), nil
}

var upgrader = websocket.Upgrader{}

func (m *mockDependencies) ServeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	_ = conn.WriteJSON(map[string]string{"type": "state"})
	_ = conn.Close()
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies(2))

		Convey("Then the health endpoint serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			So(json.NewDecoder(w.Body).Decode(&stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths are 404", func() {
			w := do(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a wrong method is 405", func() {
			w := do(mux, http.MethodGet, "/frames", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestFramesHandler(t *testing.T) {
	Convey("Given the frames endpoint", t, func() {
		deps := newMockDependencies(2)
		mux := newMux(deps)

		Convey("When posting a valid frame with a pose", func() {
			w := do(mux, http.MethodPost, "/frames", `{
				"event_id": "f-1",
				"target_id": 1,
				"signal": "targetFound",
				"pose": {"position": [1, 2, 3]},
				"ts": "2026-01-01T12:00:00Z"
			}`)

			Convey("Then it is accepted and forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var res ackResponse
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.Status, ShouldEqual, "accepted")
				So(res.Duplicate, ShouldBeFalse)

				So(deps.frames, ShouldHaveLength, 1)
				f := deps.frames[0]
				So(f.EventID, ShouldEqual, "f-1")
				So(f.TargetID, ShouldEqual, 1)
				So(f.Signal, ShouldEqual, model.SignalFound)
				So(f.Pose, ShouldNotBeNil)
				So(*f.Pose.Position, ShouldResemble, model.Vec3{1, 2, 3})
				So(f.Pose.Rotation, ShouldBeNil)
				So(f.TS.Year(), ShouldEqual, 2026)
			})
		})

		Convey("When posting a frame without optional fields", func() {
			w := do(mux, http.MethodPost, "/frames", `{"target_id": 0, "signal": "lost", "pose": {}}`)

			Convey("Then it is accepted with no pose", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.frames, ShouldHaveLength, 1)
				So(deps.frames[0].Pose, ShouldBeNil)
				So(deps.frames[0].TS.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When the same frame is posted twice", func() {
			body := `{"event_id": "dup", "target_id": 0, "signal": "found"}`
			do(mux, http.MethodPost, "/frames", body)
			w := do(mux, http.MethodPost, "/frames", body)

			Convey("Then the second is reported as duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res ackResponse
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.Status, ShouldEqual, "duplicate")
				So(res.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When the request is malformed", func() {
			cases := []struct {
				name string
				body string
			}{
				{"invalid json", `{`},
				{"missing target", `{"signal": "found"}`},
				{"missing signal", `{"target_id": 0}`},
				{"unknown signal", `{"target_id": 0, "signal": "blink"}`},
				{"bad timestamp", `{"target_id": 0, "signal": "found", "ts": "yesterday"}`},
				{"bad pose", `{"target_id": 0, "signal": "found", "pose": {"position": "up"}}`},
				{"huge position", `{"target_id": 0, "signal": "found", "pose": {"position": [1e308, 0, 0]}}`},
				{"huge rotation", `{"target_id": 0, "signal": "found", "pose": {"rotation": [0, -1e308, 0]}}`},
			}

			Convey("Then each is rejected with 400", func() {
				for _, tc := range cases {
					w := do(mux, http.MethodPost, "/frames", tc.body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					var res errorResponse
					So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
					So(res.Code, ShouldEqual, "bad_request")
				}
				So(deps.frames, ShouldBeEmpty)
			})
		})

		Convey("When the target is unknown", func() {
			w := do(mux, http.MethodPost, "/frames", `{"target_id": 9, "signal": "found"}`)

			Convey("Then it returns 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the service reports an ingestion failure", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{fmt.Errorf("%w: full", service.ErrBackpressure), http.StatusTooManyRequests, "backpressure"},
				{fmt.Errorf("%w: position[0]", model.ErrInvalidPose), http.StatusBadRequest, "bad_request"},
				{service.ErrPaused, http.StatusConflict, "paused"},
				{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
			}

			Convey("Then it is mapped to a status code", func() {
				for _, tc := range cases {
					deps.ingestErr = tc.err
					w := do(mux, http.MethodPost, "/frames", `{"target_id": 0, "signal": "found"}`)
					So(w.Code, ShouldEqual, tc.status)
					var res errorResponse
					So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
					So(res.Code, ShouldEqual, tc.code)
				}
			})
		})
	})
}

func TestTargetsHandler(t *testing.T) {
	Convey("Given the targets endpoints", t, func() {
		deps := newMockDependencies(2)
		deps.views[1].Gate.IsTracking = true
		deps.views[1].Visibility = "visible"
		mux := newMux(deps)

		Convey("When listing targets", func() {
			w := do(mux, http.MethodGet, "/targets", "")

			Convey("Then every target is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var views []types.TargetView
				So(json.NewDecoder(w.Body).Decode(&views), ShouldBeNil)
				So(views, ShouldHaveLength, 2)
				So(views[1].Visibility, ShouldEqual, "visible")
			})
		})

		Convey("When reading one target", func() {
			ok := do(mux, http.MethodGet, "/targets/1", "")
			missing := do(mux, http.MethodGet, "/targets/7", "")
			bad := do(mux, http.MethodGet, "/targets/abc", "")

			Convey("Then known, unknown and malformed ids are distinguished", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				var view types.TargetView
				So(json.NewDecoder(ok.Body).Decode(&view), ShouldBeNil)
				So(view.Target, ShouldEqual, 1)
				So(view.Gate.IsTracking, ShouldBeTrue)

				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When clicking targets", func() {
			hidden := do(mux, http.MethodPost, "/targets/0/click", "")
			visible := do(mux, http.MethodPost, "/targets/1/click", "")
			missing := do(mux, http.MethodPost, "/targets/5/click", "")

			Convey("Then the click outcome is reported", func() {
				var res types.ClickResult
				So(hidden.Code, ShouldEqual, http.StatusOK)
				So(json.NewDecoder(hidden.Body).Decode(&res), ShouldBeNil)
				So(res.Accepted, ShouldBeFalse)

				So(visible.Code, ShouldEqual, http.StatusOK)
				So(json.NewDecoder(visible.Body).Decode(&res), ShouldBeNil)
				So(res.Accepted, ShouldBeTrue)
				So(res.Target, ShouldEqual, 1)

				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(deps.clicks, ShouldResemble, []int{0, 1})
			})
		})
	})
}

func TestSessionHandler(t *testing.T) {
	Convey("Given the session endpoints", t, func() {
		deps := newMockDependencies(3)
		mux := newMux(deps)

		Convey("When pausing and resuming", func() {
			paused := do(mux, http.MethodPost, "/session/pause", "")
			state := do(mux, http.MethodGet, "/session", "")
			resumed := do(mux, http.MethodPost, "/session/resume", "")

			Convey("Then the session state follows", func() {
				var sess types.Session
				So(paused.Code, ShouldEqual, http.StatusOK)
				So(json.NewDecoder(paused.Body).Decode(&sess), ShouldBeNil)
				So(sess.Paused, ShouldBeTrue)
				So(sess.TargetCount, ShouldEqual, 3)

				So(json.NewDecoder(state.Body).Decode(&sess), ShouldBeNil)
				So(sess.Paused, ShouldBeTrue)

				So(json.NewDecoder(resumed.Body).Decode(&sess), ShouldBeNil)
				So(sess.Paused, ShouldBeFalse)
			})
		})
	})
}

func TestStreamHandler(t *testing.T) {
	Convey("Given the stream endpoint behind the metrics middleware", t, func() {
		srv := httptest.NewServer(newMux(newMockDependencies(1)))
		defer srv.Close()

		Convey("When a WebSocket client connects", func() {
			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/scene/stream", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			Convey("Then the upgrade succeeds through the wrapped writer", func() {
				var msg map[string]string
				So(conn.ReadJSON(&msg), ShouldBeNil)
				So(msg["type"], ShouldEqual, "state")
			})
		})
	})
}

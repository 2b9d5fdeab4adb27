package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/arsteady/internal/app"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/tracking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		svc := service.New(
			service.WithTargetCount(3),
			service.WithUnmountedTargets(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
			service.WithSmoothingFactor(0.5),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		seq := 0
		send := func(target int, sig model.Signal, pose *model.Pose) {
			seq++
			_, err := svc.Ingest(ctx, model.Frame{
				EventID:  fmt.Sprintf("frame-%d", seq),
				TargetID: target,
				Signal:   sig,
				Pose:     pose,
				TS:       time.Now(),
			})
			So(err, ShouldBeNil)
		}

		Convey("When a target is found and then lost for seven frames", func() {
			send(0, model.SignalFound, nil)
			for i := 0; i < 7; i++ {
				send(0, model.SignalLost, nil)
			}
			So(waitFor(func() bool {
				v, _ := svc.Target(ctx, 0)
				return v.Gate.FramesSinceDetection == 7
			}), ShouldBeTrue)

			Convey("Then it stays visible with its spin animation running", func() {
				v, err := svc.Target(ctx, 0)
				So(err, ShouldBeNil)
				So(v.Visible(), ShouldBeTrue)
				So(v.Gate.Confidence, ShouldAlmostEqual, 0.3, 1e-9)
				So(v.Mounted, ShouldBeTrue)
				So(v.Animations, ShouldResemble, []string{tracking.AnimationMain, tracking.AnimationSpin})
				So(svc.Session().VisibleTargets, ShouldEqual, 1)
			})

			Convey("And the eighth lost frame hides it", func() {
				send(0, model.SignalLost, nil)
				So(waitFor(func() bool {
					v, _ := svc.Target(ctx, 0)
					return !v.Visible()
				}), ShouldBeTrue)

				v, err := svc.Target(ctx, 0)
				So(err, ShouldBeNil)
				So(v.Visibility, ShouldEqual, "hidden")
				So(v.Gate.Confidence, ShouldAlmostEqual, 0.2, 1e-9)
				So(v.Animations, ShouldResemble, []string{tracking.AnimationMain})
				So(svc.Session().VisibleTargets, ShouldEqual, 0)
			})

			Convey("And a found frame resets the loss counter", func() {
				send(0, model.SignalFound, nil)
				So(waitFor(func() bool {
					v, _ := svc.Target(ctx, 0)
					return v.Gate.FramesSinceDetection == 0
				}), ShouldBeTrue)

				v, _ := svc.Target(ctx, 0)
				So(v.Visible(), ShouldBeTrue)
				So(v.Gate.Confidence, ShouldEqual, 1)
			})
		})

		Convey("When poses arrive for a visible target", func() {
			send(1, model.SignalFound, &model.Pose{Position: model.V(0, 0, 0)})
			send(1, model.SignalFound, &model.Pose{Position: model.V(10, 0, 0)})
			send(1, model.SignalFound, &model.Pose{Position: model.V(10, 0, 0)})
			So(waitFor(func() bool {
				v, _ := svc.Target(ctx, 1)
				return v.Pose.Position != nil && v.Pose.Position.X() > 7
			}), ShouldBeTrue)

			Convey("Then the position is smoothed toward the raw value", func() {
				v, err := svc.Target(ctx, 1)
				So(err, ShouldBeNil)
				So(v.Pose.Position.X(), ShouldAlmostEqual, 7.5, 1e-9)
				So(v.Smoothing.IsFirstFrame, ShouldBeFalse)
				So(v.Pose.Rotation, ShouldBeNil)
			})
		})

		Convey("When an unmounted target is found", func() {
			send(2, model.SignalFound, &model.Pose{Position: model.V(1, 2, 3)})
			So(waitFor(func() bool {
				v, _ := svc.Target(ctx, 2)
				return v.Visible()
			}), ShouldBeTrue)

			Convey("Then tracking continues without a scene entity", func() {
				v, err := svc.Target(ctx, 2)
				So(err, ShouldBeNil)
				So(v.Mounted, ShouldBeFalse)
				So(v.Animations, ShouldBeEmpty)

				views, err := svc.Targets(ctx)
				So(err, ShouldBeNil)
				So(views, ShouldHaveLength, 3)
			})
		})

		Convey("When a stream client is connected", func() {
			srv := httptest.NewServer(http.HandlerFunc(svc.ServeStream))
			defer srv.Close()

			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			Convey("Then it receives the initial state and later commands", func() {
				var state map[string]any
				So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
				So(conn.ReadJSON(&state), ShouldBeNil)
				So(state["type"], ShouldEqual, "state")

				So(waitFor(func() bool { return svc.GetStats()["streamClients"] == 1 }), ShouldBeTrue)
				send(0, model.SignalFound, nil)

				var cmd map[string]any
				So(conn.ReadJSON(&cmd), ShouldBeNil)
				So(cmd["type"], ShouldEqual, "visible")
				So(cmd["visible"], ShouldEqual, true)
			})
		})

		Convey("When the service stops with frames still queued", func() {
			for i := 0; i < 20; i++ {
				send(0, model.SignalFound, nil)
			}
			svc.Stop()

			Convey("Then it shuts down and refuses further frames", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				_, err := svc.Ingest(ctx, model.Frame{Signal: model.SignalFound})
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

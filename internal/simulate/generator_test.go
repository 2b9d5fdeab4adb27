package simulate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/arsteady/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func testConfig() *Config {
	return &Config{
		Targets:         3,
		FramesPerTarget: 200,
		LossTolerance:   8,
		SmoothingFactor: 0.7,
		LongDropRatio:   0.3,
		Jitter:          0.02,
		Seed:            42,
	}
}

func signals(s Script) []string {
	out := make([]string, len(s.Frames))
	for i, f := range s.Frames {
		out[i] = f.Signal
	}
	return out
}

// replayGate tracks visibility the way the overlay gate does, independently
// of the gate package.
func replayGate(frames []FrameRequest, tolerance uint) (visible bool, since uint, confidence float64) {
	for _, f := range frames {
		if f.Signal == signalFound {
			visible, since, confidence = true, 0, 1
			continue
		}
		confidence = math.Max(0, confidence-0.1)
		if visible {
			since++
			if since >= tolerance {
				visible = false
			}
		}
	}
	return visible, since, confidence
}

func TestGenerateScripts(t *testing.T) {
	Convey("Given a simulation config", t, func() {
		ctx := context.Background()
		config := testConfig()

		Convey("When scripts are generated", func() {
			stats := &Stats{}
			scripts, err := GenerateScripts(ctx, config, stats)
			So(err, ShouldBeNil)
			So(len(scripts), ShouldEqual, config.Targets)

			Convey("Then every script starts with a full run of lost frames", func() {
				for _, s := range scripts {
					for i := 0; i < int(config.LossTolerance); i++ {
						So(s.Frames[i].Signal, ShouldEqual, signalLost)
						So(s.Frames[i].Pose, ShouldBeNil)
					}
					So(s.Frames[config.LossTolerance].Signal, ShouldEqual, signalFound)
					So(s.Frames[config.LossTolerance].Pose, ShouldNotBeNil)
				}
			})

			Convey("Then every script has the requested length and target", func() {
				total := 0
				for i, s := range scripts {
					So(s.Target, ShouldEqual, i)
					So(len(s.Frames), ShouldEqual, int(config.LossTolerance)+config.FramesPerTarget)
					for _, f := range s.Frames {
						So(f.TargetID, ShouldEqual, i)
						So(f.EventID, ShouldNotBeEmpty)
						So(f.TS, ShouldNotBeEmpty)
					}
					total += len(s.Frames)
				}
				So(stats.FramesGenerated, ShouldEqual, total)
			})

			Convey("Then event ids are unique", func() {
				seen := make(map[string]bool)
				for _, s := range scripts {
					for _, f := range s.Frames {
						So(seen[f.EventID], ShouldBeFalse)
						seen[f.EventID] = true
					}
				}
			})

			Convey("Then both dropout kinds occur", func() {
				short, long := 0, 0
				for _, s := range scripts {
					short += s.Expected.ShortDropouts
					long += s.Expected.LongDropouts
				}
				So(short, ShouldBeGreaterThan, 0)
				So(long, ShouldBeGreaterThan, 0)
			})

			Convey("Then the expected gate state matches an independent replay", func() {
				for _, s := range scripts {
					visible, since, confidence := replayGate(s.Frames, config.LossTolerance)
					So(s.Expected.Visible, ShouldEqual, visible)
					So(s.Expected.FramesSinceDetection, ShouldEqual, since)
					So(s.Expected.Confidence, ShouldAlmostEqual, confidence, 1e-9)
					So(s.Expected.Position, ShouldNotBeNil)
				}
			})
		})

		Convey("When the same seed is used twice", func() {
			first, err := GenerateScripts(ctx, config, &Stats{})
			So(err, ShouldBeNil)
			second, err := GenerateScripts(ctx, config, &Stats{})
			So(err, ShouldBeNil)

			Convey("Then the scripts carry the same frames and expectations", func() {
				for i := range first {
					So(signals(second[i]), ShouldResemble, signals(first[i]))
					So(second[i].Expected, ShouldResemble, first[i].Expected)
				}
			})
		})

		Convey("When another seed is used", func() {
			first, err := GenerateScripts(ctx, config, &Stats{})
			So(err, ShouldBeNil)
			config.Seed = 43
			second, err := GenerateScripts(ctx, config, &Stats{})
			So(err, ShouldBeNil)

			Convey("Then the frame sequences differ", func() {
				So(signals(second[0]), ShouldNotResemble, signals(first[0]))
			})
		})

		Convey("When smoothing is disabled", func() {
			config.SmoothingFactor = 1
			scripts, err := GenerateScripts(ctx, config, &Stats{})
			So(err, ShouldBeNil)

			Convey("Then the expected position is the last found pose", func() {
				for _, s := range scripts {
					var last *FrameRequest
					for i := range s.Frames {
						if s.Frames[i].Signal == signalFound {
							last = &s.Frames[i]
						}
					}
					So(last, ShouldNotBeNil)
					So(*s.Expected.Position, ShouldResemble, *last.Pose.Position)
				}
			})
		})

		Convey("When the loss tolerance is one frame", func() {
			config.LossTolerance = 1
			config.LongDropRatio = 0
			scripts, err := GenerateScripts(ctx, config, &Stats{})
			So(err, ShouldBeNil)

			Convey("Then every dropout hides the target", func() {
				for _, s := range scripts {
					So(s.Expected.ShortDropouts, ShouldEqual, 0)
					So(s.Expected.LongDropouts, ShouldBeGreaterThan, 0)
				}
			})
		})

		Convey("When the loss tolerance is zero", func() {
			config.LossTolerance = 0

			Convey("Then generation fails", func() {
				scripts, err := GenerateScripts(ctx, config, &Stats{})
				So(err, ShouldNotBeNil)
				So(scripts, ShouldBeNil)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then generation stops with the context error", func() {
				_, err := GenerateScripts(cctx, config, &Stats{})
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

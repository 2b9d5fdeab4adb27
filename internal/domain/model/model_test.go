package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/arsteady/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseSignal(t *testing.T) {
	convey.Convey("Given raw signal names", t, func() {
		convey.Convey("When parsing short and engine event names", func() {
			convey.Convey("Then they map onto the two signals", func() {
				for _, in := range []string{"found", "FOUND", " targetFound "} {
					s, err := model.ParseSignal(in)
					convey.So(err, convey.ShouldBeNil)
					convey.So(s, convey.ShouldEqual, model.SignalFound)
				}
				for _, in := range []string{"lost", "targetLost"} {
					s, err := model.ParseSignal(in)
					convey.So(err, convey.ShouldBeNil)
					convey.So(s, convey.ShouldEqual, model.SignalLost)
				}
			})
		})

		convey.Convey("When parsing an unknown name", func() {
			_, err := model.ParseSignal("arReady")

			convey.Convey("Then ErrUnknownSignal is returned", func() {
				convey.So(errors.Is(err, model.ErrUnknownSignal), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPose(t *testing.T) {
	convey.Convey("Given a pose with only a position", t, func() {
		p := model.Pose{Position: model.V(1, 2, 3)}

		convey.Convey("Then it is not empty and omits missing channels in JSON", func() {
			convey.So(p.IsEmpty(), convey.ShouldBeFalse)
			raw, err := json.Marshal(p)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(raw), convey.ShouldEqual, `{"position":[1,2,3]}`)
		})

		convey.Convey("When cloned and the source is modified", func() {
			c := p.Clone()
			p.Position[0] = 99

			convey.Convey("Then the clone keeps the original values", func() {
				convey.So(c.Position.X(), convey.ShouldEqual, 1)
				convey.So(c.Rotation, convey.ShouldBeNil)
				convey.So(c.Scale, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pose decoded from JSON", t, func() {
		var p model.Pose
		err := json.Unmarshal([]byte(`{"rotation":[0,90,0],"scale":[1,1,1]}`), &p)

		convey.Convey("Then present channels are set and absent ones are nil", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.Position, convey.ShouldBeNil)
			convey.So(p.Rotation.Y(), convey.ShouldEqual, 90)
			convey.So(*p.Scale, convey.ShouldResemble, model.Vec3{1, 1, 1})
		})
	})

	convey.Convey("Given the zero pose", t, func() {
		convey.So(model.Pose{}.IsEmpty(), convey.ShouldBeTrue)
	})
}

func TestPoseValidate(t *testing.T) {
	convey.Convey("Given reported poses", t, func() {
		convey.Convey("When every present component is in range", func() {
			p := model.Pose{Position: model.V(-3, 0.5, model.MaxPoseComponent), Rotation: model.V(0, 359, 0)}

			convey.Convey("Then the pose is valid", func() {
				convey.So(p.Validate(), convey.ShouldBeNil)
				convey.So(model.Pose{}.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a component is huge, infinite or NaN", func() {
			poses := []model.Pose{
				{Position: model.V(1e308, 0, 0)},
				{Rotation: model.V(0, -1e308, 0)},
				{Scale: model.V(1, 1, math.Inf(1))},
				{Position: model.V(math.NaN(), 0, 0)},
			}

			convey.Convey("Then ErrInvalidPose is returned", func() {
				for _, p := range poses {
					convey.So(errors.Is(p.Validate(), model.ErrInvalidPose), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When a large pose arrives as JSON", func() {
			var p model.Pose
			convey.So(json.Unmarshal([]byte(`{"position":[1e308,0,0]}`), &p), convey.ShouldBeNil)

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(p.Validate(), model.ErrInvalidPose), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given vectors", t, func() {
		convey.So(model.Finite(model.Vec3{1, 2, 3}), convey.ShouldBeTrue)
		convey.So(model.Finite(model.Vec3{math.Inf(-1), 0, 0}), convey.ShouldBeFalse)
		convey.So(model.Finite(model.Vec3{0, math.NaN(), 0}), convey.ShouldBeFalse)
	})
}

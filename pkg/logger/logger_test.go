package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info level", func() {
			Get().Info(ctx, "target shown", Int("target", 2), Bool("visible", true))

			Convey("Then the record carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "target shown")
				So(out, ShouldContainSubstring, "target=2")
				So(out, ShouldContainSubstring, "visible=true")
				So(out, ShouldContainSubstring, "source=")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the configured level", func() {
			Get().Debug(ctx, "hidden detail")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "visible detail")

			Convey("Then debug records are written", func() {
				So(buf.String(), ShouldContainSubstring, "visible detail")
			})
		})

		Convey("When using a named logger", func() {
			Named("gate").Warn(ctx, "slow frame", Error(errors.New("boom")))

			Convey("Then the component is attached", func() {
				So(buf.String(), ShouldContainSubstring, "component=gate")
				So(buf.String(), ShouldContainSubstring, "error=boom")
			})
		})

		Convey("When an unknown level is requested", func() {
			err := SetLevelString("verbose")

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When given a nil writer", func() {
			Convey("Then initialization fails", func() {
				So(InitWithWriter(nil), ShouldNotBeNil)
			})
		})

		Reset(func() {
			_ = SetLevelString("info")
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging never panics", func() {
			So(func() {
				l.Info(context.Background(), "x")
				l.Named("y").Error(nil, "z") //nolint:staticcheck // nil ctx is tolerated
			}, ShouldNotPanic)
		})
	})
}

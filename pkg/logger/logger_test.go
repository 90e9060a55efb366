package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	convey.Convey("Given the global logger", t, func() {
		convey.Convey("When initialized with defaults", func() {
			convey.So(Init(), convey.ShouldBeNil)

			convey.Convey("Then Get returns a usable logger", func() {
				convey.So(Get(), convey.ShouldNotBeNil)
				convey.So(Sync(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	convey.Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		convey.So(Init(WithWriter(&buf), WithFormat("json"), WithSource(false)), convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When logging with fields", func() {
			Get().Info(ctx, "sync finished", String("kind", "data"), Int("files", 3), Error(errors.New("boom")))

			convey.Convey("Then the entry carries the message and fields", func() {
				out := buf.String()
				convey.So(out, convey.ShouldContainSubstring, `"msg":"sync finished"`)
				convey.So(out, convey.ShouldContainSubstring, `"kind":"data"`)
				convey.So(out, convey.ShouldContainSubstring, `"files":3`)
				convey.So(out, convey.ShouldContainSubstring, `"error":"boom"`)
			})
		})

		convey.Convey("When logging through nested named loggers", func() {
			Named("sync").Named("fetch").Warn(ctx, "retrying")

			convey.Convey("Then the component names are joined", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, `"component":"sync.fetch"`)
			})
		})

		convey.Convey("When the level filters the entry out", func() {
			convey.So(SetLevelString("error"), convey.ShouldBeNil)
			Get().Info(ctx, "hidden")
			convey.So(SetLevelString("info"), convey.ShouldBeNil)

			convey.Convey("Then nothing is written", func() {
				convey.So(buf.String(), convey.ShouldNotContainSubstring, "hidden")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	convey.Convey("Given level strings", t, func() {
		convey.So(SetLevelString("debug"), convey.ShouldBeNil)
		convey.So(SetLevelString("WARNING"), convey.ShouldBeNil)
		convey.So(SetLevelString(""), convey.ShouldBeNil)
		convey.So(SetLevelString("loud"), convey.ShouldNotBeNil)
	})
}

func TestNewNop(t *testing.T) {
	convey.Convey("Given a nop logger", t, func() {
		l := NewNop()

		convey.Convey("Then logging is safe and silent", func() {
			convey.So(func() { l.Named("x").Error(context.Background(), "ignored") }, convey.ShouldNotPanic)
		})
	})
}

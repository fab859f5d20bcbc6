package config_test

import (
	"testing"

	"github.com/okian/dextap/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.WSURL, convey.ShouldEqual, "ws://127.0.0.1:9001")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 4096)
			convey.So(cfg.MaxDepth, convey.ShouldEqual, 512)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 0)
			convey.So(cfg.Color, convey.ShouldBeTrue)
			convey.So(cfg.Pretty, convey.ShouldBeTrue)
			convey.So(cfg.Events, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

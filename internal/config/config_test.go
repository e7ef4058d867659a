package config_test

import (
	"runtime"
	"testing"

	"github.com/rackline/ladder/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, "memory")
			convey.So(cfg.MinRace, convey.ShouldEqual, 3)
			convey.So(cfg.MaxRankDiff, convey.ShouldEqual, 2)
			convey.So(cfg.MaxLadderLimit, convey.ShouldEqual, 100)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.DispatchWorkers, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.ReplayGuardSize, convey.ShouldEqual, 100_000)
		})
	})
}

package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/rackline/ladder/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"LADDER_CONFIG",
		"LADDER_ADDR",
		"LADDER_STORE",
		"LADDER_DB_PATH",
		"LADDER_MIN_RACE",
		"LADDER_MAX_RANK_DIFF",
		"LADDER_MAX_LADDER_LIMIT",
		"LADDER_EVENT_QUEUE_SIZE",
		"LADDER_DISPATCH_WORKERS",
		"LADDER_REPLAY_GUARD_SIZE",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "ladder-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	_ = f.Close()
	return f.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Store, convey.ShouldEqual, "memory")
				convey.So(cfg.MinRace, convey.ShouldEqual, 3)
				convey.So(cfg.MaxRankDiff, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LADDER_ADDR", ":8080")
			_ = os.Setenv("LADDER_STORE", "sqlite")
			_ = os.Setenv("LADDER_DB_PATH", "/tmp/ladder-test.db")
			_ = os.Setenv("LADDER_MIN_RACE", "5")
			_ = os.Setenv("LADDER_MAX_RANK_DIFF", "3")
			_ = os.Setenv("LADDER_DISPATCH_WORKERS", "4")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Store, convey.ShouldEqual, "sqlite")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/ladder-test.db")
				convey.So(cfg.MinRace, convey.ShouldEqual, 5)
				convey.So(cfg.MaxRankDiff, convey.ShouldEqual, 3)
				convey.So(cfg.DispatchWorkers, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store: memory
min_race: 7
max_rank_diff: 4
event_queue_size: 500
replay_guard_size: 1000
`
			tmpFile := createTempConfigFile(t, yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LADDER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MinRace, convey.ShouldEqual, 7)
				convey.So(cfg.MaxRankDiff, convey.ShouldEqual, 4)
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.ReplayGuardSize, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
min_race: 7
`
			tmpFile := createTempConfigFile(t, yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LADDER_CONFIG", tmpFile)
			_ = os.Setenv("LADDER_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars should win over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MinRace, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading an invalid configuration", func() {
			_ = os.Setenv("LADDER_STORE", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/evalharvest/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ChunkSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.MaxRetries, convey.ShouldEqual, 5)
			convey.So(cfg.BackoffInitialMS, convey.ShouldEqual, 15_000)
			convey.So(cfg.BackoffJitter, convey.ShouldEqual, 0.1)
			convey.So(cfg.Output, convey.ShouldEqual, "-")
			convey.So(cfg.Completion, convey.ShouldEqual, config.CompletionSentinel)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with out-of-range values", t, func() {
		cases := map[string]func(*config.Config){
			"worker_count": func(c *config.Config) { c.WorkerCount = 0 },
			"queue_size":   func(c *config.Config) { c.QueueSize = 0 },
			"chunk_size":   func(c *config.Config) { c.ChunkSize = 0 },
			"max_retries":  func(c *config.Config) { c.MaxRetries = 0 },
			"backoff_ms":   func(c *config.Config) { c.BackoffInitialMS = -1 },
			"jitter":       func(c *config.Config) { c.BackoffJitter = 1 },
			"rate_limit":   func(c *config.Config) { c.RateLimit = -1 },
			"completion":   func(c *config.Config) { c.Completion = "both" },
			"output":       func(c *config.Config) { c.Output = "" },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" is rejected as invalid config", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/arena/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.TokenTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.ReputationSyncInterval(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid field", t, func() {
		cases := map[string]func(*config.Config){
			"log_format":       func(c *config.Config) { c.LogFormat = "xml" },
			"duration bounds":  func(c *config.Config) { c.MaxDurationSeconds = c.MinDurationSeconds - 1 },
			"winner_share_pct": func(c *config.Config) { c.WinnerSharePct = -1 },
			"queue_size":       func(c *config.Config) { c.EventQueueSize = 0 },
			"worker_count":     func(c *config.Config) { c.WorkerCount = 0 },
			"token_ttl_s":      func(c *config.Config) { c.TokenTTLSeconds = 0 },
			"rate_limit_burst": func(c *config.Config) { c.RateLimitBurst = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, name)
		}
	})

	convey.Convey("Given rate limiting disabled", t, func() {
		cfg := config.New()
		cfg.RateLimitRPS = 0
		cfg.RateLimitBurst = 0

		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}

package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/highscores/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Domain, convey.ShouldEqual, "localhost")
			convey.So(cfg.Port, convey.ShouldEqual, 8080)
			convey.So(cfg.DBPath, convey.ShouldEqual, "leaderboard.db")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Addr(), convey.ShouldEqual, "localhost:8080")
			convey.So(cfg.DBBusyTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.DBJournalMode, convey.ShouldEqual, "WAL")
			convey.So(cfg.CacheKey, convey.ShouldBeEmpty)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the journal mode is lower case", func() {
			cfg.DBJournalMode = "delete"

			convey.Convey("Then it should still validate", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the journal mode is unknown", func() {
			cfg.DBJournalMode = "fast"

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the busy timeout is negative", func() {
			cfg.DBBusyTimeoutMS = -1

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the domain is an IPv6 literal", func() {
			cfg.Domain = "::1"

			convey.Convey("Then the address should be bracketed", func() {
				convey.So(cfg.Addr(), convey.ShouldEqual, "[::1]:8080")
			})
		})
	})
}

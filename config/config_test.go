package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/warp/crewtax/config"
)

var envKeys = []string{
	"CREWTAX_CONFIG", "CREWTAX_ADDR", "CREWTAX_DB_PATH", "CREWTAX_LOG_LEVEL",
	"CREWTAX_CORS_ORIGINS", "CREWTAX_RATES_DEFAULT_YEAR", "CREWTAX_HOME_COUNTRY_CODE",
	"CREWTAX_METRICS_ENABLED",
}

func clearConfigEnvVars() {
	for _, k := range envKeys {
		_ = os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crewtax.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.HomeCountryCode, convey.ShouldEqual, "DE")
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, config.DefaultCORSOrigins)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "./data/crewtax.db")
		})

		convey.Convey("When loading a YAML file", func() {
			path := writeConfig(t, `
addr: ":9090"
db_path: ":memory:"
log_level: debug
cors_origins:
  - https://crew.example.com
rates_default_year: 2024
`)
			cfg, err := config.LoadFile(ctx, path)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.DBPath, convey.ShouldEqual, ":memory:")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"https://crew.example.com"})
			convey.So(cfg.RatesDefaultYear, convey.ShouldEqual, 2024)
		})

		convey.Convey("When env vars override the file", func() {
			path := writeConfig(t, "addr: \":9090\"\n")
			_ = os.Setenv("CREWTAX_CONFIG", path)
			_ = os.Setenv("CREWTAX_ADDR", ":7070")
			_ = os.Setenv("CREWTAX_HOME_COUNTRY_CODE", "at")
			_ = os.Setenv("CREWTAX_METRICS_ENABLED", "false")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.HomeCountryCode, convey.ShouldEqual, "AT")
			convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value is invalid", func() {
			_ = os.Setenv("CREWTAX_LOG_LEVEL", "verbose")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

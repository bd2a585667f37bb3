// Package config loads bridge settings from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/obd-bridge/errors"
)

// Config holds settings shared by the CLI and the JNI library.
type Config struct {
	// Strict enables the null-handle guard and strict decoding.
	Strict bool `env:"OBDBRIDGE_STRICT" envDefault:"false"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `env:"OBDBRIDGE_LOG_LEVEL" envDefault:"warn"`

	// MemoryLimitPages caps guest memory in wasm mode (64KiB pages).
	MemoryLimitPages uint32 `env:"OBDBRIDGE_MEMORY_LIMIT_PAGES" envDefault:"256"`

	// Metrics prints call metrics after CLI commands.
	Metrics bool `env:"OBDBRIDGE_METRICS" envDefault:"false"`
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads Config from the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("log level %q", cfg.LogLevel))
	}
	return cfg, nil
}

// Logger builds a JSON logger on stderr at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core), nil
}

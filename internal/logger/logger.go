// Package logger holds the process-wide zap logger.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	global *zap.Logger
)

// Init builds the global logger. env "production"/"prod" selects JSON output;
// anything else uses the console encoder. level is a zap level name; an
// unknown or empty level means info. Logs go to stderr so command output on
// stdout stays clean.
func Init(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	global = base
	mu.Unlock()
	zap.ReplaceGlobals(base)
	return base, nil
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil || strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel
	}
	return parsed
}

// L returns the global logger, initializing it from LOG_ENV on first use.
func L() *zap.Logger {
	mu.Lock()
	current := global
	mu.Unlock()
	if current != nil {
		return current
	}

	base, err := Init(os.Getenv("LOG_ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		base = zap.NewNop()
		mu.Lock()
		global = base
		mu.Unlock()
	}
	return base
}

// Sync flushes buffered entries.
func Sync() {
	mu.Lock()
	current := global
	mu.Unlock()
	if current != nil {
		_ = current.Sync()
	}
}

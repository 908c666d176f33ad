package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mpilhlt/formfill-relay/internal/timestamp"
)

// NewLogger builds the relay logger from cfg.Level. Debug gets a console
// encoder for local runs, every other level writes JSON lines. Both carry
// the +09:00 wall-clock time under "time".
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := logLevel(cfg.Level)

	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = timestamp.Encoder
	// request logs are emitted in full, one line per milestone
	zc.Sampling = nil

	return zc.Build()
}

// logLevel maps LOG_LEVEL onto a zap level. Case is ignored, "warning"
// is accepted for warn, and anything unknown falls back to info.
func logLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil || level > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return level
}

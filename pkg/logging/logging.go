// Package logging builds the zap-backed logr logger used by the binaries.
package logging

import (
	"strings"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level. Unknown names mean info.
func ParseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Setup builds a JSON production logger at logLevel. The returned zap logger
// must be synced before exit.
func Setup(logLevel string) (logr.Logger, *zap.Logger) {
	zapLevel := ParseLevel(logLevel)

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := zapConfig.Build()
	if err != nil {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(zapLevel)
		zapLogger, _ = devConfig.Build()
	}
	logger := zapr.NewLogger(zapLogger)
	logger.V(1).Info("Logger initialized", "level", logLevel)
	return logger, zapLogger
}

// SetupConsole builds a human readable logger on stderr for interactive
// tools, where JSON lines would interleave with the conversation.
func SetupConsole(logLevel string) (logr.Logger, *zap.Logger) {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(logLevel))
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.DisableStacktrace = true

	zapLogger, err := zapConfig.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapr.NewLogger(zapLogger), zapLogger
}

// Truncate shortens s to at most maxBytes bytes plus suffix, cutting on a rune
// boundary so the result stays valid UTF-8.
func Truncate(s string, maxBytes int, suffix string) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}

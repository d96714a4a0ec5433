package logging

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetup(t *testing.T) {
	logger, zapLogger := Setup("debug")
	assert.NotNil(t, zapLogger)
	assert.True(t, logger.V(1).Enabled())

	logger, zapLogger = SetupConsole("warn")
	assert.NotNil(t, zapLogger)
	assert.False(t, logger.Enabled())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10, "..."))
	assert.Equal(t, "abc...", Truncate("abcdef", 3, "..."))

	// each rune is three bytes; a cut at 4 must back off to 3
	got := Truncate("東京都庁", 4, "...")
	assert.Equal(t, "東...", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("紅葉", 500)
	got = Truncate(long, 1000, "... (truncated)")
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 1000+len("... (truncated)"))
	assert.True(t, strings.HasSuffix(got, "... (truncated)"))
}

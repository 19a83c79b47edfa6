package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogDebug},
		{" TRACE ", LogDebug},
		{"verbose", LogDebug},
		{"info", LogInfo},
		{"warning", LogWarn},
		{"WARN", LogWarn},
		{"error", LogError},
		{"", LogInfo},
		{"loud", LogInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.in), tt.in)
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogDebug.String())
	assert.Equal(t, "ERROR", LogError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestSafeLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSafeLoggerWithWriter("TEST", &buf)

	assert.True(t, l.Enabled(LogInfo))
	assert.False(t, l.Enabled(LogDebug), "info is the default level")

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "TEST", "entries carry the logger prefix")

	buf.Reset()
	l.SetLevel(LogDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
	assert.Contains(t, buf.String(), "DEBUG")

	buf.Reset()
	l.SetLevel(LogError)
	l.Warn("quiet")
	l.Error("boom: %v", "disk")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "boom: disk")
}

func TestSafeLoggerWritesOneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	l := NewSafeLoggerWithWriter("Server", &buf)

	l.Info("first")
	l.Warn("second")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Server")
	assert.Contains(t, lines[1], "WARN")
}

func TestSetGlobalLevel(t *testing.T) {
	t.Cleanup(func() { SetGlobalLevel(LogInfo) })

	SetGlobalLevel(LogDebug)
	for _, l := range []*SafeLogger{LSPLogger, ServerLogger, ClientLogger, CLILogger, GatewayLogger} {
		assert.True(t, l.Enabled(LogDebug), l.prefix)
	}

	SetGlobalLevel(LogError)
	for _, l := range []*SafeLogger{LSPLogger, ServerLogger, ClientLogger, CLILogger, GatewayLogger} {
		assert.False(t, l.Enabled(LogWarn), l.prefix)
		assert.True(t, l.Enabled(LogError), l.prefix)
	}
}

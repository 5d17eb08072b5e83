package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestModuleLoggerFieldsAndLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	root := NewSlogLogger(buf, LogLevelDebug, time.UTC)
	log := root.Module("scanner").Module("capture").With(String("session", "s1"))

	log.Trace("hidden")
	log.Debug("frame dropped", Uint64("seq", 7), Duration("interval", 200*time.Millisecond))
	log.Error("capture failed", Error(errors.New("boom")), Float64("ratio", 0.123456))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "scanner.capture", lines[0]["module"])
	assert.Equal(t, "s1", lines[0]["session"])
	assert.Equal(t, "200ms", lines[0]["interval"])
	assert.EqualValues(t, 7, lines[0]["seq"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.InDelta(t, 0.123, lines[1]["ratio"], 1e-9)
	assert.Equal(t, "ERROR", lines[1]["level"])
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC).WithContext(WithTraceID(context.Background(), "abc"))
	log.Info("request")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0]["trace_id"])
}

func TestCentralLoggerModuleLevels(t *testing.T) {
	t.Parallel()

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		ModuleLevels: map[string]string{"scanner": "trace"},
	})
	require.NoError(t, err)

	assert.Equal(t, traceLevelValue, cl.Module("scanner.capture").(*moduleLogger).level)
	assert.Equal(t, parseLogLevel("warn"), cl.Module("catalog").(*moduleLogger).level)
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "blink.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "info"},
	})
	require.NoError(t, err)

	cl.Module("catalog").Info("seeded", Int("routes", 2))
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"catalog"`)
	assert.Contains(t, string(data), `"routes":2`)
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestGormAdapterTrace(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewGormLoggerAdapter(NewSlogLogger(buf, LogLevelInfo, time.UTC), time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	adapter.Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "query error", lines[0]["msg"])
	assert.Equal(t, "slow query", lines[1]["msg"])
}

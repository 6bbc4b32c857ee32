package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestZapLoggerWritesObjectUnderKey(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLogger(New("info", zapcore.AddSync(&buf)))

	log.DebugObj("hidden", "k", 1)
	log.InfoObj("feed loaded", "feed_meta", map[string]any{"items": 2})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "feed loaded", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
	assert.Equal(t, map[string]any{"items": float64(2)}, entry["feed_meta"])
}

func TestEnsureFallsBackToNop(t *testing.T) {
	assert.IsType(t, NopLogger{}, Ensure(nil))
	z := NewZapLogger(nil)
	assert.Same(t, z, Ensure(z))
}

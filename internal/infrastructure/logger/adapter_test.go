package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithFieldsAttachesContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.WithField("conversation", "c-1").
		WithFields(map[string]any{"task": "threat_hunt"}).
		Info("Workflow started", "slot", "hypothesis")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Workflow started", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "c-1", fields["conversation"])
	assert.Equal(t, "threat_hunt", fields["task"])
	assert.Equal(t, "hypothesis", fields["slot"])
}

func TestLevelsAreFiltered(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := NewFromZap(zap.New(core))

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Equal(t, 2, logs.Len())
}

func TestFileLoggerWritesJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig("chat session/1")
	cfg.Dir = dir

	l, err := NewLoggerAdapter(cfg)
	require.NoError(t, err)

	l.Info("Turn processed", "kind", "question")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], "_chat_session_1.log"))

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "Turn processed", entry["message"])
	assert.Equal(t, "question", entry["kind"])
	assert.Equal(t, "info", entry["level"])
}

func TestInvalidLevel(t *testing.T) {
	cfg := DefaultConfig("x")
	cfg.Dir = t.TempDir()
	cfg.Level = "loud"

	_, err := NewLoggerAdapter(cfg)
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "socflow", sanitize(""))
	assert.Equal(t, "a_b-c", sanitize("a b-c"))
	assert.Len(t, sanitize(strings.Repeat("x", 100)), 60)
}

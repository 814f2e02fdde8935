package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutputRoutesLogs(t *testing.T) {
	var structured, human bytes.Buffer
	Init()
	SetOutput(&structured, &human)
	t.Cleanup(Init)

	Info("hello", "answer", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, float64(42), entry["answer"])
	assert.Contains(t, human.String(), "msg=hello")
}

func TestForServiceWithoutInit(t *testing.T) {
	structuredLogger = nil
	humanReadableLogger = nil
	t.Cleanup(Init)

	logger := ForService("history")
	require.NotNil(t, logger)
	logger.Info("store opened")
}

func TestForServiceAddsAttribute(t *testing.T) {
	var structured, human bytes.Buffer
	Init()
	SetOutput(&structured, &human)
	t.Cleanup(Init)

	logger := ForService("camera")
	require.NotNil(t, logger)
	logger.Info("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "camera", entry["service"])
}

func TestCustomLevelLabels(t *testing.T) {
	var structured, human bytes.Buffer
	Init()
	SetOutput(&structured, &human)
	t.Cleanup(Init)

	Trace("fine detail")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "TRACE", entry["level"])
	assert.Contains(t, human.String(), "level=TRACE")
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "service.log")

	logger, closeFn, err := NewFileLogger(path, "history", slog.LevelDebug)
	require.NoError(t, err)
	require.NotNil(t, logger)
	t.Cleanup(func() { _ = closeFn() })

	logger.Info("saved entry", "id", "abc")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "saved entry", entry["msg"])
	assert.Equal(t, "history", entry["service"])
}

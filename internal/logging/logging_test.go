package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"task-tracker-api/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceField(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "warn", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.WithField("task_id", "TSK-1").Warn("late")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, ServiceName, entry["service"])
	require.Equal(t, "TSK-1", entry["task_id"])
	require.Equal(t, "late", entry["msg"])
	require.Equal(t, "warning", entry["level"])
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracker.log")
	logger, err := New(config.LogConfig{Level: "info", Format: "text", Output: "file", File: path})
	require.NoError(t, err)

	logger.Info("hello file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello file")
	require.Contains(t, string(data), "service="+ServiceName)
}

func TestParseLevel_Fallback(t *testing.T) {
	require.Equal(t, logrus.InfoLevel, ParseLevel("loud"))
	require.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
}

func TestApplyLevel(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "info"})
	require.NoError(t, err)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	cfg := config.Default()
	cfg.Log.Level = "error"
	ApplyLevel(logger)(cfg)
	require.Equal(t, logrus.ErrorLevel, logger.GetLevel())
}

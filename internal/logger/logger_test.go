package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterLayout(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 2, 21, 14, 45, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "history refresh failed",
		Data:    logrus.Fields{"run_id": "RUN_1", "attempt": 2},
	}

	out, err := (&Formatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-02-21 14:45:00] [WARN] [] history refresh failed attempt=2 run_id=RUN_1\n", string(out))
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nexus.log")
	require.NoError(t, Init("debug", path))
	t.Cleanup(func() { Log.SetOutput(os.Stderr) })

	Log.Debug("console started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "console started"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}

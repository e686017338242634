package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	f := &Formatter{}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "plugin loaded\n",
		Data: logrus.Fields{
			ComponentField: "plugins",
			"version":      "1.0.0",
			"plugin":       "clock",
		},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [warn ] [plugins] plugin loaded | plugin=clock, version=1.0.0\n", string(out))
}

func TestFormatterWithoutComponent(t *testing.T) {
	f := &Formatter{DisableTimestamp: true}
	out, err := f.Format(&logrus.Entry{Level: logrus.InfoLevel, Message: "hello", Data: logrus.Fields{}})
	require.NoError(t, err)
	assert.Equal(t, "[info ] [--------] hello\n", string(out))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  logrus.Level
		valid bool
	}{
		{"debug", logrus.DebugLevel, true},
		{"INFO", logrus.InfoLevel, true},
		{"warning", logrus.WarnLevel, true},
		{"WARN", logrus.WarnLevel, true},
		{"Warning", logrus.WarnLevel, true},
		{"error", logrus.ErrorLevel, true},
		{"bogus", logrus.InfoLevel, false},
		{"", logrus.InfoLevel, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
		assert.Equal(t, tt.valid, ValidLevel(tt.in), "ValidLevel(%q)", tt.in)
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	Component(log, "settings").Info("hidden")
	Component(log, "settings").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[settings] shown")
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "confman.log")
	log, err := New(Config{Level: "debug", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("to file")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestLoggerApply(t *testing.T) {
	var first, second bytes.Buffer
	log, err := New(Config{Output: &first})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	require.NoError(t, log.Apply(Config{Level: "error", Output: &second}))
	log.Warn("dropped")
	log.Error("kept")

	assert.Empty(t, first.String())
	assert.NotContains(t, second.String(), "dropped")
	assert.Contains(t, second.String(), "kept")
}

func TestLoggerApplyRotationSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confman.log")
	log, err := New(Config{File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	before := log.writer
	require.NoError(t, log.Apply(Config{File: path, MaxSizeMB: 1}))
	assert.Same(t, before, log.writer, "unchanged config keeps the writer")

	require.NoError(t, log.Apply(Config{File: path, MaxSizeMB: 5}))
	assert.NotSame(t, before, log.writer)
	assert.Equal(t, 5, log.writer.MaxSize)
	assert.Equal(t, 1, before.MaxSize, "live writer must not be modified")

	log.Info("after resize")
	require.NoError(t, log.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after resize")
}

// Run with -race: Apply must not touch a writer logrus is using.
func TestLoggerApplyWhileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confman.log")
	log, err := New(Config{File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				log.Info("tick")
			}
		}
	}()

	for i := range 50 {
		require.NoError(t, log.Apply(Config{File: path, MaxSizeMB: 1 + i%3}))
	}
	close(done)
	wg.Wait()

	log.Info("last")
	require.NoError(t, log.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), "last"))
}

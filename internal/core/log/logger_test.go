package log

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNopLogger 测试静默日志
func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	// 所有方法都不应该 panic
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")
	logger.Infof("test %s", "arg")

	_, ok := logger.WithField("key", "value").(NopLogger)
	assert.True(t, ok)
	_, ok = logger.WithError(errors.New("x")).(NopLogger)
	assert.True(t, ok)
	_, ok = logger.WithContext(context.Background()).(NopLogger)
	assert.True(t, ok)
}

// mockTestingT 模拟 testing.T
type mockTestingT struct {
	logs []string
}

func (m *mockTestingT) Log(args ...interface{}) {
	m.logs = append(m.logs, args[0].(string))
}

func (m *mockTestingT) Logf(format string, args ...interface{}) {
	m.logs = append(m.logs, format)
}

// TestTestLogger 测试测试日志
func TestTestLogger(t *testing.T) {
	mock := &mockTestingT{}
	logger := NewTestLogger(mock)

	logger.Info("info message")
	logger.Warnf("warn %d", 2)
	logger.WithField("kind", "status").WithError(errors.New("boom")).Error("publish failed")

	require.Len(t, mock.logs, 3)
	assert.Equal(t, "[INFO] info message", mock.logs[0])
	assert.Equal(t, "[WARN] warn 2", mock.logs[1])
	assert.Equal(t, "[ERROR] publish failed error=boom kind=status", mock.logs[2])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("bogus"))
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "console.log")

	logger, closer, err := New(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	logger.WithField("kind", "status").Debugf("dispatching %d listeners", 2)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"msg":"dispatching 2 listeners"`), line)
	assert.True(t, strings.Contains(line, `"kind":"status"`), line)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	mock := &mockTestingT{}
	SetDefault(NewTestLogger(mock))
	Infof("hello %s", "grid")

	require.Len(t, mock.logs, 1)
	assert.Equal(t, "[INFO] hello grid", mock.logs[0])
	assert.Equal(t, Default(), OrDefault(nil))
}

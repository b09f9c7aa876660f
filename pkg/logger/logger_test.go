package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Level(t *testing.T) {
	l, err := NewLogger("warn", false)
	require.NoError(t, err)

	assert.False(t, l.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Zap().Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := NewLogger("loud", true)
	require.NoError(t, err)

	assert.True(t, l.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestNop(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("ignored", "k", 1)
	l.Errorf("ignored %d", 2)
}

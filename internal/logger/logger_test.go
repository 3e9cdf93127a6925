package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	l, err := New("warn", "json")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New("debug", "console")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestZapAdapter_CarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapAdapter(zap.New(core)).
		WithFields(map[string]interface{}{"user_id": "u1"}).
		WithError(errors.New("boom"))

	l.Warn("payments call failed", map[string]interface{}{"op": "balance"})

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	require.Equal(t, "u1", ctx["user_id"])
	require.Equal(t, "balance", ctx["op"])
	require.Equal(t, "boom", ctx["error"])
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	l := NewTestLogger(t)
	require.Equal(t, l, OrNop(l))
}

package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"development", Config{Level: "debug", Environment: "development", ServiceName: "test"}},
		{"production", Config{Level: "info", Environment: "production", ServiceName: "test"}},
		{"unknown level falls back to info", Config{Level: "chatty", ServiceName: "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, l)

			// None of these should panic regardless of configuration.
			l.Debug("debug message")
			l.Info("info message", zap.String("key", "value"))
			l.Warn("warn message")
			l.Error("error message", errors.New("boom"))
		})
	}
}

func TestWith(t *testing.T) {
	l, err := New(Config{Level: "info", ServiceName: "test"})
	require.NoError(t, err)

	child := l.With(zap.String("run_id", "abc"))
	require.NotNil(t, child)
	assert.NotSame(t, l, child)
	child.Info("message from child")
}

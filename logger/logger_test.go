package logger_test

import (
	"testing"

	"github.com/samthor/listbuf/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   logger.Config
		level zapcore.Level
	}{
		{"Debug console", logger.Config{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{"Info json", logger.Config{Level: "info", Format: "json"}, zapcore.InfoLevel},
		{"Warn", logger.Config{Level: "warn"}, zapcore.WarnLevel},
		{"Empty", logger.Config{}, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logger.New(&tt.cfg)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.level-1))
			}
		})
	}
}

func TestNewBadLevel(t *testing.T) {
	_, err := logger.New(&logger.Config{Level: "loud"})
	assert.Error(t, err)
}

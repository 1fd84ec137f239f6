// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LogConfig
		enabled zapcore.Level
		off     zapcore.Level
		wantErr bool
	}{
		{name: "defaults to info", cfg: types.LogConfig{}, enabled: zapcore.InfoLevel, off: zapcore.DebugLevel},
		{name: "debug console", cfg: types.LogConfig{Level: "DEBUG", Format: "console"}, enabled: zapcore.DebugLevel, off: zapcore.DebugLevel - 1},
		{name: "warn json", cfg: types.LogConfig{Level: "warn", Format: "json"}, enabled: zapcore.WarnLevel, off: zapcore.InfoLevel},
		{name: "development", cfg: types.LogConfig{Level: "error", Development: true}, enabled: zapcore.ErrorLevel, off: zapcore.WarnLevel},
		{name: "bad level", cfg: types.LogConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: types.LogConfig{Format: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.off))
		})
	}
}

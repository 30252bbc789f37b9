package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techservice/internal/config"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
		want  zerolog.Level
	}{
		{name: "development", env: "development", want: zerolog.DebugLevel},
		{name: "production", env: "production", want: zerolog.InfoLevel},
		{name: "override", env: "production", level: "WARN", want: zerolog.WarnLevel},
		{name: "bad override ignored", env: "production", level: "loud", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(config.LogConfig{Level: tt.level}, tt.env)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "techservice.log")
	log := New(config.LogConfig{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}, "production")

	log.Info().Str("ticket_id", "abc").Msg("ticket transitioned")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ticket_id":"abc"`)
	assert.Contains(t, string(data), `"service":"techservice"`)
}

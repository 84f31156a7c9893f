package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8444", cfg.HTTPAddr)
	assert.Equal(t, "recordings", cfg.RecordingsDir)
	assert.Equal(t, 2, cfg.RecorderWorkers)
	assert.Empty(t, cfg.TextModel)
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8444", cfg.HTTPAddr)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
text_model: gemini-3-flash-preview
http_addr: ":9000"
record_sessions: true
recorder_workers: 0
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash-preview", cfg.TextModel)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.True(t, cfg.RecordSessions)
	// Zero worker count falls back to the default.
	assert.Equal(t, 2, cfg.RecorderWorkers)
}

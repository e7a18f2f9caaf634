package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postcard.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File should now exist
	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 1920, cfg.Video.Height)
	assert.Equal(t, 6, cfg.ImageGen.MaxPerStop)
	assert.Equal(t, 8*time.Second, time.Duration(cfg.Tour.PollInterval))
	assert.Equal(t, 0, cfg.Tour.MinNarrations)
}

func TestLoad_MergesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postcard.yaml")

	partial := `
video:
  width: 1080
  height: 1080
  seconds_per_image: 4
tour:
  max_wait: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 1080, cfg.Video.Height)
	assert.InDelta(t, 4.0, cfg.Video.SecondsPerImage, 0.001)
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.Tour.MaxWait))

	// Defaults preserved
	assert.Equal(t, 30, cfg.Video.FPS)
	assert.Equal(t, "flux", cfg.ImageGen.Pollinations.Model)
}

func TestLoad_EnvKeyFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postcard.yaml")

	t.Setenv("GEMINI_API_KEY", "env-gemini-key")
	t.Setenv("ELEVENLABS_API_KEY", "env-eleven-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-gemini-key", cfg.ImageGen.Gemini.Key)
	assert.Equal(t, "env-eleven-key", cfg.TTS.ElevenLabs.Key)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero dimensions", "video:\n  width: 0\n"},
		{"negative seconds per image", "video:\n  seconds_per_image: -1\n"},
		{"transition longer than cap", "video:\n  transition_duration: 90s\n"},
		{"max per stop zero", "imagegen:\n  max_per_stop: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "postcard.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestParseDuration_ExtendedUnits(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1d12h", 36 * time.Hour},
		{"500ms", 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

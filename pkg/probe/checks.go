package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"postcardgo/pkg/config"
)

// Defaults returns the standard startup probes for the given config.
// ffmpeg and ffprobe are hard requirements; missing provider keys only
// shrink the fallback chains.
func Defaults(cfg *config.Config) []Probe {
	return []Probe{
		{Name: "ffmpeg", Check: BinaryCheck("ffmpeg"), Critical: true},
		{Name: "ffprobe", Check: BinaryCheck("ffprobe"), Critical: true},
		{Name: "output dir", Check: DirWritableCheck(cfg.Video.OutputDir), Critical: true},
		{Name: "gemini key", Check: KeyCheck("GEMINI_API_KEY", cfg.ImageGen.Gemini.Key)},
		{Name: "elevenlabs key", Check: KeyCheck("ELEVENLABS_API_KEY", cfg.TTS.ElevenLabs.Key)},
	}
}

// BinaryCheck verifies that the named executable is on PATH.
func BinaryCheck(name string) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found on PATH: %w", name, err)
		}
		return nil
	}
}

// DirWritableCheck verifies the directory exists (creating it if needed)
// and accepts writes.
func DirWritableCheck(dir string) CheckFunc {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
		f, err := os.CreateTemp(dir, ".probe_*")
		if err != nil {
			return fmt.Errorf("cannot write to %s: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(filepath.Clean(name))
	}
}

// KeyCheck reports a missing API key. Always non-critical: the provider
// chain degrades to the keyless fallbacks.
func KeyCheck(envName, value string) CheckFunc {
	return func(ctx context.Context) error {
		if value == "" {
			return fmt.Errorf("not configured (set %s or the config key)", envName)
		}
		return nil
	}
}

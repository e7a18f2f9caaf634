package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ProbeAudioDuration returns the duration of an audio file in seconds.
// ffprobe is authoritative; if it is missing or fails, the file is decoded
// in-process instead so a broken probe install doesn't take down the
// pipeline.
func ProbeAudioDuration(ctx context.Context, path string) (float64, error) {
	if dur, err := ffprobeDuration(ctx, path); err == nil {
		return dur, nil
	} else {
		slog.Debug("ffprobe failed, decoding audio in-process", "path", path, "error", err)
	}
	return decodeDuration(path)
}

func ffprobeDuration(ctx context.Context, path string) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	out, err := exec.CommandContext(cctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(out string) (float64, error) {
	dur, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ffprobe duration %q: %w", strings.TrimSpace(out), err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("non-positive duration %.3f", dur)
	}
	return dur, nil
}

// decodeDuration computes duration from the decoded sample count.
func decodeDuration(path string) (float64, error) {
	streamer, format, err := decodeMedia(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}

func decodeMedia(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	// Try MP3 first
	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// Reopen for the WAV attempt (the failed MP3 decode consumed the reader)
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode audio %s: %w", path, err)
	}
	return streamer, format, nil
}

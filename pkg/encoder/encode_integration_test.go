package encoder

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcardgo/pkg/config"
	"postcardgo/pkg/model"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed, skipping", bin)
		}
	}
}

// writeTestImage renders a small gradient JPEG so the encoder has real pixels
// to zoom over.
func writeTestImage(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, "frame.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
	return path
}

func TestEncode_SingleImageSilentDurationRoundTrip(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	imagePath := writeTestImage(t, dir)

	const secondsPerImage = 2.0
	e := New(&config.VideoConfig{
		Width:         320,
		Height:        640,
		FPS:           30,
		ZoomFactor:    1.12,
		EncodeTimeout: config.Duration(2 * time.Minute),
	})

	tl := &model.Timeline{
		Segments: []model.Segment{
			{ImagePath: imagePath, Duration: secondsPerImage, Zoom: model.ZoomIn},
		},
		TotalDuration: secondsPerImage,
	}

	outputPath := filepath.Join(dir, "out.mp4")
	require.NoError(t, e.Encode(context.Background(), tl, "", outputPath))
	require.FileExists(t, outputPath)

	got, err := ffprobeDuration(context.Background(), outputPath)
	require.NoError(t, err)
	assert.InDelta(t, secondsPerImage, got, 0.2)
}

func TestEncodeSingle_DurationRoundTrip(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	imagePath := writeTestImage(t, dir)

	e := New(&config.VideoConfig{
		Width:         320,
		Height:        640,
		FPS:           30,
		ZoomFactor:    1.12,
		EncodeTimeout: config.Duration(2 * time.Minute),
	})

	outputPath := filepath.Join(dir, "single.mp4")
	require.NoError(t, e.EncodeSingle(context.Background(), imagePath, 2.0, "", outputPath))

	got, err := ffprobeDuration(context.Background(), outputPath)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 0.2)
}

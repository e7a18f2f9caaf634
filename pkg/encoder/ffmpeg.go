package encoder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"postcardgo/pkg/config"
	"postcardgo/pkg/model"
)

// Encoder drives ffmpeg subprocesses to render a timeline into an MP4.
//
// The multi-segment strategy encodes one clip per image sequentially, then
// concatenates and muxes the audio in a final pass. One subprocess at a time
// bounds peak memory; a single filter graph across all images gets fragile
// and memory-hungry once chains grow.
type Encoder struct {
	width      int
	height     int
	fps        int
	zoomFactor float64
	timeout    time.Duration
}

// New creates an encoder with settings from the video config.
func New(cfg *config.VideoConfig) *Encoder {
	zoom := cfg.ZoomFactor
	if zoom < 1.05 {
		zoom = 1.05
	}
	if zoom > 1.2 {
		zoom = 1.2
	}
	return &Encoder{
		width:      cfg.Width,
		height:     cfg.Height,
		fps:        cfg.FPS,
		zoomFactor: zoom,
		timeout:    time.Duration(cfg.EncodeTimeout),
	}
}

// Encode renders the timeline into outputPath using the multi-segment
// strategy. audioPath may be empty for a silent video. All intermediate
// clips and the concat manifest are removed on every exit path.
func (e *Encoder) Encode(ctx context.Context, tl *model.Timeline, audioPath, outputPath string) error {
	if len(tl.Segments) == 0 {
		return &EncodeError{Stage: "concat", Err: fmt.Errorf("timeline has no segments")}
	}

	workDir, err := os.MkdirTemp("", "postcard_segments_")
	if err != nil {
		return &EncodeError{Stage: "segment", Err: fmt.Errorf("failed to create work dir: %w", err)}
	}
	defer os.RemoveAll(workDir)

	clips := make([]string, 0, len(tl.Segments))
	for i, seg := range tl.Segments {
		clip := filepath.Join(workDir, fmt.Sprintf("segment_%03d.mp4", i))
		if err := e.encodeSegment(ctx, &seg, tl.TransitionDuration, i == 0, i == len(tl.Segments)-1, clip); err != nil {
			return err
		}
		clips = append(clips, clip)
		slog.Debug("Segment encoded", "index", i, "image", seg.ImagePath, "duration", seg.Duration)
	}

	listFile := filepath.Join(workDir, "segments_concat.txt")
	if err := os.WriteFile(listFile, []byte(buildConcatList(clips)), 0o644); err != nil {
		return &EncodeError{Stage: "concat", Err: fmt.Errorf("failed to write concat list: %w", err)}
	}

	args := []string{"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", fmt.Sprintf("%d", e.fps),
		"-pix_fmt", "yuv420p",
	)
	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", "192k", "-shortest")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-t", fmt.Sprintf("%.3f", tl.TotalDuration),
		"-movflags", "+faststart", // optimize for web streaming
		outputPath,
	)

	if err := e.run(ctx, "concat", args); err != nil {
		// Never leave a truncated output behind
		_ = os.Remove(outputPath)
		return err
	}
	return nil
}

// EncodeSingle produces one static Ken-Burns clip from a single image, the
// fallback when the multi-segment path fails.
func (e *Encoder) EncodeSingle(ctx context.Context, imagePath string, duration float64, audioPath, outputPath string) error {
	if duration <= 0 {
		duration = 5.0
	}

	args := []string{"-y",
		"-loop", "1",
		"-i", imagePath,
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-vf", e.kenBurnsFilter(duration, model.ZoomIn),
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
	)
	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", "192k", "-shortest")
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-movflags", "+faststart", outputPath)

	if err := e.run(ctx, "single", args); err != nil {
		_ = os.Remove(outputPath)
		return err
	}
	return nil
}

func (e *Encoder) encodeSegment(ctx context.Context, seg *model.Segment, transition float64, first, last bool, outFile string) error {
	filter := e.segmentFilter(seg, transition, first, last)

	args := []string{"-y",
		"-loop", "1",
		"-i", seg.ImagePath,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", seg.Duration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", fmt.Sprintf("%d", e.fps),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	}
	return e.run(ctx, "segment", args)
}

// segmentFilter builds the per-clip filter: fill-and-crop to the target
// aspect on an oversized canvas, Ken Burns zoom, and fades at the clip
// boundaries that meet a neighbor.
func (e *Encoder) segmentFilter(seg *model.Segment, transition float64, first, last bool) string {
	parts := []string{e.kenBurnsFilter(seg.Duration, seg.Zoom)}

	if !first && transition > 0 {
		parts = append(parts, fmt.Sprintf("fade=t=in:st=0:d=%.3f", transition))
	}
	if !last && transition > 0 {
		st := seg.Duration - transition
		if st < 0 {
			st = 0
		}
		parts = append(parts, fmt.Sprintf("fade=t=out:st=%.3f:d=%.3f", st, transition))
	}
	return strings.Join(parts, ",")
}

// kenBurnsFilter renders a slow zoom on a 2x oversized canvas to avoid the
// jitter zoompan produces at output resolution.
func (e *Encoder) kenBurnsFilter(duration float64, zoom model.ZoomDirection) string {
	totalFrames := int(duration * float64(e.fps))
	if totalFrames < 1 {
		totalFrames = 1
	}
	zoomStep := (e.zoomFactor - 1.0) / float64(totalFrames)

	var zoomExpr string
	if zoom == model.ZoomOut {
		// Start fully zoomed and ease back out. Keyed on the zoom value, not
		// the frame counter, so it initializes regardless of whether zoompan
		// numbers output frames from 0 or 1.
		zoomExpr = fmt.Sprintf("if(lte(zoom,1.0),%.3f,max(zoom-%.6f,1.0))", e.zoomFactor, zoomStep)
	} else {
		zoomExpr = fmt.Sprintf("min(zoom+%.6f,%.3f)", zoomStep, e.zoomFactor)
	}

	upW, upH := e.width*2, e.height*2
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='%s':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:fps=%d:s=%dx%d",
		upW, upH, upW, upH,
		zoomExpr, totalFrames, e.fps, e.width, e.height,
	)
}

// buildConcatList formats the clip paths for ffmpeg's concat demuxer.
func buildConcatList(clips []string) string {
	lines := make([]string, 0, len(clips))
	for _, c := range clips {
		lines = append(lines, fmt.Sprintf("file '%s'", c))
	}
	return strings.Join(lines, "\n")
}

// run executes one ffmpeg invocation under the configured hard timeout.
// A timed-out subprocess is force-killed; hangs must not block the pipeline.
func (e *Encoder) run(ctx context.Context, stage string, args []string) error {
	cctx := ctx
	var cancel context.CancelFunc
	if e.timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("Running ffmpeg", "stage", stage, "args", strings.Join(args, " "))
	err := cmd.Run()
	if err == nil {
		return nil
	}

	timedOut := cctx.Err() == context.DeadlineExceeded
	return &EncodeError{
		Stage:    stage,
		TimedOut: timedOut,
		Err:      fmt.Errorf("ffmpeg: %w (%s)", err, stderrTail(stderr.String())),
	}
}

// stderrTail keeps the last few lines of ffmpeg output, where the actual
// error lives.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no stderr output"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}

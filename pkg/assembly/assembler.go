package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"postcardgo/pkg/config"
	"postcardgo/pkg/encoder"
	"postcardgo/pkg/imagegen"
	"postcardgo/pkg/model"
	"postcardgo/pkg/timeline"
)

// ImageFetcher resolves one image request to a local file.
// Satisfied by imagegen.Chain.
type ImageFetcher interface {
	Fetch(ctx context.Context, req *imagegen.Request, destDir string) (string, error)
}

// Narrator synthesizes narration audio. Satisfied by tts.Chain.
type Narrator interface {
	Synthesize(ctx context.Context, text, voice, outputPath string) (string, error)
}

// Downloader fetches remote asset URLs to local files.
// Satisfied by request.Client.
type Downloader interface {
	Download(ctx context.Context, u, dir, prefix, ext string, minSize int64) (string, error)
}

// VideoEncoder renders timelines. Satisfied by encoder.Encoder.
type VideoEncoder interface {
	Encode(ctx context.Context, tl *model.Timeline, audioPath, outputPath string) error
	EncodeSingle(ctx context.Context, imagePath string, duration float64, audioPath, outputPath string) error
}

// Options override the configured timing bounds per request.
type Options struct {
	MaxDurationSeconds float64 // 0 = use config
	SecondsPerImage    float64 // 0 = use config
}

// Assembler is the top-level entry point of the video pipeline: it resolves
// a stop's assets, computes the timeline, and drives the encoder. Stages run
// strictly in order and asset fetches are best-effort; the only fatal fetch
// outcome is ending up with zero images.
type Assembler struct {
	cfg      *config.Config
	images   ImageFetcher
	narrator Narrator // nil disables synthesis, silent videos still work
	dl       Downloader
	enc      VideoEncoder

	// probe is swappable in tests; production uses encoder.ProbeAudioDuration
	probe func(ctx context.Context, path string) (float64, error)
}

// New creates an assembler.
func New(cfg *config.Config, images ImageFetcher, narrator Narrator, dl Downloader, enc VideoEncoder) *Assembler {
	return &Assembler{
		cfg:      cfg,
		images:   images,
		narrator: narrator,
		dl:       dl,
		enc:      enc,
		probe:    encoder.ProbeAudioDuration,
	}
}

// Assemble produces one MP4 for the given stop. Ownership of the returned
// video path transfers to the caller; every other file this run created is
// deleted before returning, on success and failure alike.
func (a *Assembler) Assemble(ctx context.Context, tourDestination string, stop *model.StopDescriptor, opts Options) model.AssemblyResult {
	workDir, err := os.MkdirTemp(a.cfg.Video.WorkDir, "postcard_assets_")
	if err != nil {
		return failure(fmt.Errorf("failed to create work dir: %w", err))
	}
	defer func() {
		// Best effort: a file already gone must never disturb the result
		if err := os.RemoveAll(workDir); err != nil {
			slog.Warn("Temp asset cleanup failed", "dir", workDir, "error", err)
		}
	}()

	asset := a.fetchAssets(ctx, workDir, tourDestination, stop)
	if len(asset.ImagePaths) == 0 {
		slog.Error("No usable images for stop", "stop", stop.Name)
		return model.AssemblyResult{Success: false, Error: timeline.ErrNoAssets.Error()}
	}

	params := timeline.FromConfig(&a.cfg.Video)
	if opts.SecondsPerImage > 0 {
		params.SecondsPerImage = opts.SecondsPerImage
	}
	if opts.MaxDurationSeconds > 0 {
		params.MaxDuration = opts.MaxDurationSeconds
	}

	audioDuration := 0.0
	if asset.AudioPath != "" {
		if d, err := a.probe(ctx, asset.AudioPath); err != nil {
			slog.Warn("Audio duration probe failed, using fixed per-image timing", "stop", stop.Name, "error", err)
		} else {
			audioDuration = d
		}
	}

	tl, err := timeline.Compute(asset.ImagePaths, audioDuration, params)
	if err != nil {
		return failure(err)
	}

	outputPath, err := a.outputPath(stop.Name)
	if err != nil {
		return failure(err)
	}

	if err := a.enc.Encode(ctx, tl, asset.AudioPath, outputPath); err != nil {
		// Only per-segment failures get the single-image fallback. If the
		// clips all encoded and the concat/mux broke, re-encoding one image
		// won't fare better.
		var encErr *encoder.EncodeError
		if !errors.As(err, &encErr) || encErr.Stage != "segment" {
			return failure(err)
		}
		slog.Warn("Segment encode failed, falling back to single image", "stop", stop.Name, "error", err)

		duration := params.SecondsPerImage
		if audioDuration > 0 {
			duration = audioDuration
			if params.MaxDuration > 0 && duration > params.MaxDuration {
				duration = params.MaxDuration
			}
		}

		if ferr := a.enc.EncodeSingle(ctx, asset.ImagePaths[0], duration, asset.AudioPath, outputPath); ferr != nil {
			// Fallback exhausted: report the encoder error verbatim so the
			// caller can decide whether to retry the stop
			return failure(ferr)
		}
	}

	slog.Info("Stop video assembled", "stop", stop.Name, "video", outputPath,
		"images", len(asset.ImagePaths), "audio", asset.AudioPath != "")
	return model.AssemblyResult{Success: true, VideoPath: outputPath}
}

// fetchAssets resolves the stop's remote assets into local temp files.
// Every fetch is independent and best-effort: a failed image degrades the
// set, a failed narration yields a silent video.
func (a *Assembler) fetchAssets(ctx context.Context, workDir, destination string, stop *model.StopDescriptor) *model.StopAsset {
	asset := &model.StopAsset{
		Name:          stop.Name,
		Description:   stop.Description,
		NarrationText: stop.NarrationText,
	}

	maxImages := a.cfg.ImageGen.MaxPerStop
	minBytes := a.cfg.ImageGen.MinImageBytes

	urls := stop.ImageURLs
	if len(urls) > maxImages {
		urls = urls[:maxImages]
	}

	for i, u := range urls {
		path, err := a.dl.Download(ctx, u, workDir, fmt.Sprintf("image_%02d", i), "jpg", minBytes)
		if err == nil {
			asset.ImagePaths = append(asset.ImagePaths, path)
			continue
		}
		slog.Warn("Stop image download failed, trying providers", "stop", stop.Name, "url", u, "error", err)
		if path := a.generateImage(ctx, workDir, destination, stop, i); path != "" {
			asset.ImagePaths = append(asset.ImagePaths, path)
		}
	}

	// Stops without any upstream images get generated ones
	if len(urls) == 0 {
		want := maxImages
		if want > 3 {
			want = 3
		}
		for i := 0; i < want; i++ {
			if path := a.generateImage(ctx, workDir, destination, stop, i); path != "" {
				asset.ImagePaths = append(asset.ImagePaths, path)
			}
		}
	}

	asset.AudioPath = a.fetchNarration(ctx, workDir, stop)
	return asset
}

func (a *Assembler) generateImage(ctx context.Context, workDir, destination string, stop *model.StopDescriptor, seed int) string {
	req := &imagegen.Request{
		Prompt: fmt.Sprintf("Scenic travel photograph of %s in %s. %s. Golden hour, postcard style.",
			stop.Name, destination, stop.Description),
		Keywords: []string{destination, stop.Name},
		Seed:     seed,
		Width:    a.cfg.Video.Width,
		Height:   a.cfg.Video.Height,
	}

	path, err := a.images.Fetch(ctx, req, workDir)
	if err != nil {
		slog.Warn("Image generation exhausted all providers", "stop", stop.Name, "seed", seed, "error", err)
		return ""
	}
	return path
}

// fetchNarration resolves audio: a pre-rendered upstream URL first, then
// synthesis from the stop's script. Absence of narration is a first-class
// outcome, not an error.
func (a *Assembler) fetchNarration(ctx context.Context, workDir string, stop *model.StopDescriptor) string {
	if stop.AudioURL != "" {
		path, err := a.dl.Download(ctx, stop.AudioURL, workDir, "narration", "mp3", 1024)
		if err == nil {
			return path
		}
		slog.Warn("Narration download failed, trying synthesis", "stop", stop.Name, "error", err)
	}

	script := stop.ScriptText()
	if a.narrator == nil || script == "" {
		return ""
	}

	outputPath := filepath.Join(workDir, "narration.mp3")
	if _, err := a.narrator.Synthesize(ctx, script, "", outputPath); err != nil {
		slog.Warn("Narration synthesis exhausted all providers, proceeding silent", "stop", stop.Name, "error", err)
		return ""
	}
	return outputPath
}

func (a *Assembler) outputPath(stopName string) (string, error) {
	dir := a.cfg.Video.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	name := fmt.Sprintf("postcard_%s_%d_%s.mp4", slugify(stopName), time.Now().UnixMilli(), uuid.NewString()[:8])
	return filepath.Join(dir, name), nil
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "stop"
	}
	return b.String()
}

func failure(err error) model.AssemblyResult {
	return model.AssemblyResult{Success: false, Error: err.Error()}
}

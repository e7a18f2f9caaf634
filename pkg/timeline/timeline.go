package timeline

import (
	"errors"
	"fmt"

	"postcardgo/pkg/config"
	"postcardgo/pkg/model"
)

// ErrNoAssets is returned when composition is attempted with zero images.
// Distinct from a degraded silent video, which still needs at least one image.
var ErrNoAssets = errors.New("NoAssetsAvailable")

// Params bound the computed timeline. Values come from config but can be
// overridden per assembly request.
type Params struct {
	SecondsPerImage float64
	MaxDuration     float64
	Transition      float64
}

// FromConfig derives timeline parameters from the video config.
func FromConfig(cfg *config.VideoConfig) Params {
	return Params{
		SecondsPerImage: cfg.SecondsPerImage,
		MaxDuration:     cfg.MaxDuration.Seconds(),
		Transition:      cfg.TransitionDuration.Seconds(),
	}
}

// Compute builds the rendering plan for one video: per-image screen time,
// alternating zoom direction, and cross-fade start offsets.
//
// audioDuration <= 0 means no narration track; timing then falls back to a
// fixed seconds-per-image budget.
//
// Offsets are computed by accumulation: each cross-fade consumes one
// transition length of overlap from the running total, so segment i starts at
// offset_{i-1} + duration - transition. A fixed i*duration stride drifts
// visibly once more than two images are chained.
func Compute(imagePaths []string, audioDuration float64, p Params) (*model.Timeline, error) {
	n := len(imagePaths)
	if n == 0 {
		return nil, ErrNoAssets
	}
	if p.SecondsPerImage <= 0 {
		return nil, fmt.Errorf("seconds per image must be positive, got %.2f", p.SecondsPerImage)
	}

	hasAudio := audioDuration > 0

	// Total screen time: audio-driven when narration exists, otherwise a
	// fixed budget per image. Both are bounded by the hard cap.
	total := float64(n) * p.SecondsPerImage
	if hasAudio && audioDuration < total {
		total = audioDuration
	}
	if p.MaxDuration > 0 && total > p.MaxDuration {
		total = p.MaxDuration
	}

	transition := p.Transition
	if n == 1 {
		transition = 0
	}

	// Each cross-fade overlaps two segments, so the per-image duration must
	// absorb the shared fade time for the segment ends to land on total.
	overlap := float64(n-1) * transition
	perImage := (total + overlap) / float64(n)

	// Degenerate case: clips shorter than the fade itself. Drop transitions
	// rather than produce segments that are all fade.
	if perImage <= transition {
		transition = 0
		perImage = total / float64(n)
	}

	segments := make([]model.Segment, 0, n)
	offset := 0.0
	for i, path := range imagePaths {
		zoom := model.ZoomIn
		if i%2 == 1 {
			zoom = model.ZoomOut
		}
		segments = append(segments, model.Segment{
			ImagePath:   path,
			StartOffset: offset,
			Duration:    perImage,
			Zoom:        zoom,
		})
		offset += perImage - transition
	}

	return &model.Timeline{
		Segments:           segments,
		TransitionDuration: transition,
		TotalDuration:      total,
		HasAudio:           hasAudio,
	}, nil
}

package model

// StopDescriptor is one narrated waypoint as delivered by the tour service.
type StopDescriptor struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	NarrationText string   `json:"narration_text,omitempty"`
	ImageURLs     []string `json:"image_urls"`
	AudioURL      string   `json:"audio_url,omitempty"`
}

// ScriptText returns the text used for narration synthesis.
// Falls back to the description when no dedicated narration text exists.
func (s *StopDescriptor) ScriptText() string {
	if s.NarrationText != "" {
		return s.NarrationText
	}
	return s.Description
}

// Tour is the remote resource polled until its narrations are complete.
type Tour struct {
	ID          string           `json:"id"`
	Destination string           `json:"destination"`
	Topic       string           `json:"topic"`
	Stops       []StopDescriptor `json:"stops"`
	Ready       bool             `json:"ready"`
}

// NarratedCount returns the number of stops whose narration is available,
// either as pre-rendered audio or as text ready for synthesis.
func (t *Tour) NarratedCount() int {
	n := 0
	for i := range t.Stops {
		if t.Stops[i].AudioURL != "" || t.Stops[i].NarrationText != "" {
			n++
		}
	}
	return n
}

// StopAsset is a stop with all remote assets resolved to local temp files.
// Image and audio paths are owned by the orchestrator and deleted after
// encoding; they are never persisted.
type StopAsset struct {
	Name          string
	Description   string
	NarrationText string
	ImagePaths    []string
	AudioPath     string
}

// ZoomDirection selects the Ken Burns motion for a segment.
type ZoomDirection int

const (
	ZoomIn ZoomDirection = iota
	ZoomOut
)

func (z ZoomDirection) String() string {
	if z == ZoomOut {
		return "out"
	}
	return "in"
}

// Segment is one still image's slice of the rendering plan.
type Segment struct {
	ImagePath   string
	StartOffset float64 // seconds from timeline start, transitions already deducted
	Duration    float64 // seconds this image is on screen
	Zoom        ZoomDirection
}

// Timeline is the computed rendering plan for one video.
// It is immutable once computed and consumed only by the encoder.
type Timeline struct {
	Segments           []Segment
	TransitionDuration float64 // seconds of cross-fade overlap between adjacent segments
	TotalDuration      float64 // seconds, bounded by min(audio duration, hard cap)
	HasAudio           bool
}

// AssemblyResult is the outcome of one orchestration run. On success,
// ownership of VideoPath transfers to the caller.
type AssemblyResult struct {
	Success   bool   `json:"success"`
	VideoPath string `json:"video_path,omitempty"`
	Error     string `json:"error,omitempty"`
}

package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"postcardgo/pkg/config"
	"postcardgo/pkg/tracker"
	"postcardgo/pkg/tts"
)

// Provider implements tts.Provider for the ElevenLabs speech API.
type Provider struct {
	key     string
	voiceID string
	modelID string
	client  *http.Client
	tracker *tracker.Tracker
}

type synthesisRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewProvider creates a new ElevenLabs TTS provider.
func NewProvider(cfg config.ElevenLabsConfig, t *tracker.Tracker) *Provider {
	return &Provider{
		key:     cfg.Key,
		voiceID: cfg.VoiceID,
		modelID: cfg.Model,
		client:  &http.Client{},
		tracker: t,
	}
}

// Synthesize generates speech from text using ElevenLabs.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID, outputPath string) (string, error) {
	// 1. Determine Voice ID
	vid := p.voiceID
	if voiceID != "" {
		vid = voiceID
	}
	if vid == "" {
		return "", fmt.Errorf("no voice ID configured for ElevenLabs")
	}
	if p.key == "" {
		return "", tts.NewFatalError(401, "no API key configured for ElevenLabs")
	}

	// 2. Build Request Body
	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: p.modelID,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", vid)
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", p.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	// 3. Execute Request
	resp, err := p.client.Do(req)
	if err != nil {
		tts.Log("ELEVENLABS", text, 0, err)
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("elevenlabs")
		}
		return "", fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tts.Log("ELEVENLABS", text, resp.StatusCode, nil)
		body, err := io.ReadAll(resp.Body)
		bodyStr := string(body)
		if err != nil {
			bodyStr = fmt.Sprintf("[failed to read body: %v]", err)
		}
		if bodyStr == "" {
			bodyStr = "[empty body]"
		}

		if p.tracker != nil {
			p.tracker.TrackAPIFailure("elevenlabs")
		}

		// Return FatalError for 4xx/5xx to trigger fallback
		errMsg := fmt.Sprintf("elevenlabs api error (status %d): %s", resp.StatusCode, bodyStr)
		return "", tts.NewFatalError(resp.StatusCode, errMsg)
	}

	// 4. Save Output
	tts.Log("ELEVENLABS", text, 200, nil)

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("elevenlabs")
		}
		return "", fmt.Errorf("failed to write audio to file: %w", err)
	}

	if p.tracker != nil {
		p.tracker.TrackAPISuccess("elevenlabs")
	}

	return "mp3", nil
}

package pollinations

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"postcardgo/pkg/config"
	"postcardgo/pkg/request"
	"postcardgo/pkg/tts"
)

const baseURL = "https://text.pollinations.ai"

// Provider implements tts.Provider for the Pollinations audio endpoint.
// It is keyless, which makes it the natural last resort in the chain.
type Provider struct {
	voice  string
	client *request.Client
}

// NewProvider creates a new Pollinations TTS provider.
func NewProvider(cfg config.PollyVoiceConfig, client *request.Client) *Provider {
	return &Provider{
		voice:  cfg.Voice,
		client: client,
	}
}

// Synthesize generates speech from text via a plain GET request.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	v := p.voice
	if voice != "" {
		v = voice
	}

	u := fmt.Sprintf("%s/%s?model=openai-audio&voice=%s",
		baseURL, url.PathEscape(text), url.QueryEscape(v))

	body, err := p.client.Get(ctx, u, "")
	if err != nil {
		tts.Log("POLLINATIONS", text, 0, err)
		return "", fmt.Errorf("pollinations audio request failed: %w", err)
	}

	if len(body) < tts.MinAudioSize {
		tts.Log("POLLINATIONS", text, 200, fmt.Errorf("undersized payload"))
		return "", fmt.Errorf("pollinations returned %d bytes, likely an error payload", len(body))
	}

	tts.Log("POLLINATIONS", text, 200, nil)

	if err := os.WriteFile(outputPath, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio to file: %w", err)
	}
	return "mp3", nil
}

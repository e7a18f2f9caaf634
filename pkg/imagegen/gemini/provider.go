package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"postcardgo/pkg/config"
	"postcardgo/pkg/imagegen"
	"postcardgo/pkg/tracker"
)

// Provider implements imagegen.Provider for Gemini image models.
type Provider struct {
	genaiClient *genai.Client
	modelName   string
	tracker     *tracker.Tracker
}

// NewProvider creates a new Gemini image provider. Returns an error if the
// client cannot be constructed; a missing key yields a provider that fails
// fatally on first use so the chain disables it cleanly.
func NewProvider(cfg config.GeminiConfig, t *tracker.Tracker) (*Provider, error) {
	p := &Provider{
		modelName: cfg.Model,
		tracker:   t,
	}
	if p.modelName == "" {
		p.modelName = "gemini-2.5-flash-image"
	}

	if cfg.Key == "" {
		return p, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	p.genaiClient = client

	if err := p.validateModel(context.Background()); err != nil {
		slog.Warn("Gemini model validation failed (proceeding anyway)", "error", err)
		// Startup must survive a flaky or rate-limited API. A truly invalid
		// key or model surfaces on the first Fetch instead.
	}

	return p, nil
}

// Fetch generates one image and writes it into destDir.
func (p *Provider) Fetch(ctx context.Context, req *imagegen.Request, destDir string) (string, error) {
	if p.genaiClient == nil {
		return "", imagegen.NewFatalError(401, "gemini image provider not configured")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := p.genaiClient.Models.GenerateContent(ctx, p.modelName, genai.Text(req.Prompt), cfg)
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("gemini")
		}
		if isAuthError(err) {
			return "", imagegen.NewFatalError(401, fmt.Sprintf("gemini auth failed: %v", err))
		}
		return "", fmt.Errorf("generate image error: %w", err)
	}

	data, mime, err := firstImagePart(resp)
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("gemini")
		}
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}

	name := fmt.Sprintf("gemini_%d_%s.%s", time.Now().UnixMilli(), uuid.NewString()[:8], extForMIME(mime))
	path := filepath.Join(destDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	if p.tracker != nil {
		p.tracker.TrackAPISuccess("gemini")
	}
	return path, nil
}

func firstImagePart(resp *genai.GenerateContentResponse) (data []byte, mime string, err error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", fmt.Errorf("no candidates returned")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}
	return nil, "", fmt.Errorf("response contained no image data")
}

func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "api_key_invalid")
}

// validateModel checks if the configured model is available for the API key.
func (p *Provider) validateModel(ctx context.Context) error {
	name := p.modelName
	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}

	// Try to get the specific model (1 API call)
	_, err := p.genaiClient.Models.Get(ctx, name, nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", p.modelName)
		return nil
	}

	slog.Warn("Gemini model validation failed, fetching available models...", "model", p.modelName, "error", err)

	iter, listErr := p.genaiClient.Models.List(ctx, nil)
	if listErr != nil {
		slog.Warn("Failed to list models for recovery", "error", listErr)
		return nil
	}

	var availableModels []string
	for {
		resp, nextErr := iter.Next(ctx)
		if nextErr == iterator.Done {
			break
		}
		if nextErr != nil {
			break
		}
		if strings.Contains(strings.ToLower(resp.Name), "image") {
			availableModels = append(availableModels, resp.Name)
		}
	}

	slog.Error("Configured model not found", "configured", p.modelName)
	slog.Error("Available image models for this key:")
	for _, m := range availableModels {
		slog.Error("- " + m)
	}

	return nil
}

package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"google.golang.org/genai"
)

// Gemini generates images with Google's Gemini API. Gemini returns image bytes rather than URLs, so every
// locator it produces is a data URL.
type Gemini struct {
	model string

	client *genai.Client

	logger *slog.Logger
}

const (
	geminiProvider = "gemini"

	defaultGeminiImageModel = "gemini-2.5-flash-image"
)

// NewGemini creates a Gemini image generator. With an empty apiKey the generator is returned unconfigured,
// so requests fail the credential precondition instead of the server failing to start.
func NewGemini(ctx context.Context, apiKey, baseURL, model string, logger *slog.Logger) (Gemini, error) {
	if model == "" {
		model = defaultGeminiImageModel
	}
	g := Gemini{
		model:  model,
		logger: logger.With(slog.String("module", geminiProvider)),
	}
	if apiKey == "" {
		return g, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return Gemini{}, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client

	return g, nil
}

// Name returns the display name of the provider.
func (g Gemini) Name() string {
	return "Gemini"
}

// Configured reports whether an API key was available when the generator was created.
func (g Gemini) Configured() bool {
	return g.client != nil
}

// aspectRatio maps a WIDTHxHEIGHT resolution to the closest aspect ratio Gemini accepts.
func aspectRatio(r models.Resolution) string {
	w, h, ok := r.Dimensions()
	switch {
	case !ok || w == h:
		return "1:1"
	case w > h:
		return "16:9"
	default:
		return "9:16"
	}
}

// GenerateImages calls Gemini until req.Amount images are collected and returns exactly that many data URLs.
// A single response may carry several image parts, so the result is trimmed to the requested amount. A call
// that yields no image ends generation with a malformed result error.
func (g Gemini) GenerateImages(ctx context.Context, req models.ImageRequest) ([]models.Image, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: req.Prompt},
			},
		},
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: aspectRatio(req.Resolution),
		},
	}

	g.logger.Debug("Image request",
		slog.String("model", g.model),
		slog.Int("amount", req.Amount),
		slog.String("aspectRatio", cfg.ImageConfig.AspectRatio))

	images := make([]models.Image, 0, max(req.Amount, 0))
	for len(images) < req.Amount {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, providerError(geminiProvider, fmt.Errorf("generation failed: %w", err))
		}

		batch := geminiImages(resp)
		if len(batch) == 0 {
			return nil, emptyResultError(geminiProvider, g.Name())
		}
		images = append(images, batch...)
	}

	return images[:req.Amount], nil
}

func geminiImages(resp *genai.GenerateContentResponse) []models.Image {
	if resp == nil {
		return nil
	}

	var images []models.Image
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			images = append(images, models.Image{
				URL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data),
			})
		}
	}
	return images
}

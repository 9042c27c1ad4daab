package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
)

type imageRequest struct {
	Prompt string `json:"prompt"`
	// Amount is kept raw because the dashboard form posts it as a string.
	Amount     json.RawMessage `json:"amount"`
	Resolution *string         `json:"resolution"`
}

const imageTool = "image"

// HandleImage generates images from a prompt and answers with the ordered list of image locators.
//
// The handler expects a JSON body with a required "prompt", an optional "amount" between 1 and 10
// (default 1), and an optional "resolution" that must be one of the configured sizes (default 512x512).
// Preconditions are checked in that order, after authentication and provider configuration, and nothing
// is sent to the provider unless all of them hold.
func (m Main) HandleImage(w http.ResponseWriter, r *http.Request) {
	if !m.authorize(w, r, imageTool, m.image.Name(), m.image.Configured()) {
		return
	}

	var body imageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		m.fail(w, r, imageTool, badInput("Invalid request body", err))
		return
	}

	req, err := m.imageRequest(body)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, models.ErrEmptyPrompt):
			msg = "Prompt is required"
		case errors.Is(err, models.ErrInvalidAmount):
			msg = "Amount must be between 1 and 10"
		default:
			msg = "Resolution is required and must be one of " + m.resolutions.String()
		}
		m.fail(w, r, imageTool, badInput(msg, err))
		return
	}

	images, err := m.image.GenerateImages(r.Context(), req)
	if err != nil {
		m.fail(w, r, imageTool, providerFailed(err))
		return
	}

	m.logger.Debug("Images generated",
		slog.Int("requested", req.Amount),
		slog.Int("received", len(images)))

	writeJSON(w, http.StatusOK, images)
}

// imageRequest validates body and turns it into the request forwarded to the provider. The configured
// prompt suffix is appended here, after validation, so an empty prompt is never rescued by the suffix.
func (m Main) imageRequest(body imageRequest) (models.ImageRequest, error) {
	if strings.TrimSpace(body.Prompt) == "" {
		return models.ImageRequest{}, models.ErrEmptyPrompt
	}

	amount, err := models.ParseAmount(body.Amount)
	if err != nil {
		return models.ImageRequest{}, err
	}

	resolution, err := models.ParseResolution(body.Resolution, m.resolutions)
	if err != nil {
		return models.ImageRequest{}, err
	}

	return models.ImageRequest{
		Prompt:     body.Prompt + m.promptSuffix,
		Amount:     amount,
		Resolution: resolution,
	}, nil
}

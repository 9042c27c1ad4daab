package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides chat completions and image generation backed by OpenAI's API.
type OpenAI struct {
	apiKey     string
	imageModel string

	client *goopenai.Client

	logger *slog.Logger
}

const openAIProvider = "openai"

// NewOpenAI creates a new OpenAI instance. An empty baseURL selects the public OpenAI endpoint; any other
// value points the client at an OpenAI compatible server. imageModel is only used for image generation.
func NewOpenAI(apiKey, baseURL, imageModel string, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if imageModel == "" {
		imageModel = goopenai.CreateImageModelDallE2
	}

	return OpenAI{
		apiKey:     apiKey,
		imageModel: imageModel,
		client:     goopenai.NewClientWithConfig(cfg),
		logger:     logger.With(slog.String("module", openAIProvider)),
	}
}

// Name returns the display name of the provider.
func (o OpenAI) Name() string {
	return "OpenAI"
}

// Configured reports whether an API key is available.
func (o OpenAI) Configured() bool {
	return o.apiKey != ""
}

func openAIMessages(messages []models.Message) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		msgs[i] = goopenai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return msgs
}

// Complete sends messages as a single chat completion request and returns the first choice.
func (o OpenAI) Complete(ctx context.Context, model string, messages []models.Message) (models.Message, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: openAIMessages(messages),
	}

	reqJSON, err := json.Marshal(req)
	if err == nil {
		o.logger.Debug("Request", slog.String("req", string(reqJSON)))
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return models.Message{}, providerError(openAIProvider, fmt.Errorf("error sending request: %w", err))
	}

	if len(resp.Choices) == 0 {
		return models.Message{}, emptyResultError(openAIProvider, o.Name())
	}

	return models.Message{
		Role:    models.RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// Stream is the streaming variant of Complete. It yields text deltas as they arrive.
func (o OpenAI) Stream(ctx context.Context, model string, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := goopenai.ChatCompletionRequest{
			Model:    model,
			Messages: openAIMessages(messages),
			Stream:   true,
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", providerError(openAIProvider, fmt.Errorf("error sending request: %w", err)))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", providerError(openAIProvider, fmt.Errorf("error receiving response: %w", err)))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			if content := response.Choices[0].Delta.Content; content != "" {
				if !yield(content, nil) {
					return
				}
			}
		}
	}
}

// GenerateImages requests req.Amount images and returns their locators in the order OpenAI returned them.
func (o OpenAI) GenerateImages(ctx context.Context, req models.ImageRequest) ([]models.Image, error) {
	imgReq := goopenai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          o.imageModel,
		N:              req.Amount,
		Size:           string(req.Resolution),
		ResponseFormat: goopenai.CreateImageResponseFormatURL,
	}

	o.logger.Debug("Image request",
		slog.String("model", imgReq.Model),
		slog.Int("n", imgReq.N),
		slog.String("size", imgReq.Size))

	resp, err := o.client.CreateImage(ctx, imgReq)
	if err != nil {
		return nil, providerError(openAIProvider, fmt.Errorf("error sending request: %w", err))
	}

	images := make([]models.Image, 0, len(resp.Data))
	for _, d := range resp.Data {
		switch {
		case d.URL != "":
			images = append(images, models.Image{URL: d.URL})
		case d.B64JSON != "":
			images = append(images, models.Image{URL: "data:image/png;base64," + d.B64JSON})
		}
	}
	if len(images) == 0 {
		return nil, emptyResultError(openAIProvider, o.Name())
	}

	return images, nil
}

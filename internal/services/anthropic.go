package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic provides an interface to the Anthropic API for chat completions using Claude models. The
// Anthropic API takes instructions separately from the conversation, so system messages are lifted out of
// the transcript before sending.
type Anthropic struct {
	apiKey    string
	maxTokens int

	client *anthropic.Client

	logger *slog.Logger
}

const (
	anthropicProvider = "anthropic"

	defaultAnthropicMaxTokens = 4096
)

// NewAnthropic creates a new Anthropic instance with the specified API key and maximum token limit. An empty
// baseURL selects the public endpoint.
func NewAnthropic(apiKey, baseURL string, maxTokens int, logger *slog.Logger) Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	client := anthropic.NewClient(opts...)

	return Anthropic{
		apiKey:    apiKey,
		maxTokens: maxTokens,
		client:    &client,
		logger:    logger.With(slog.String("module", anthropicProvider)),
	}
}

// Name returns the display name of the provider.
func (a Anthropic) Name() string {
	return "Anthropic"
}

// Configured reports whether an API key is available.
func (a Anthropic) Configured() bool {
	return a.apiKey != ""
}

// extractSystemMessages splits the transcript into the joined system instructions and the remaining
// conversation, keeping the conversation order.
func extractSystemMessages(messages []models.Message) (string, []models.Message) {
	var system []string
	rest := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}

func (a Anthropic) messageParams(model string, messages []models.Message) anthropic.MessageNewParams {
	system, ms := extractSystemMessages(messages)

	msgs := make([]anthropic.MessageParam, len(ms))
	for i, msg := range ms {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == models.RoleAssistant {
			msgs[i] = anthropic.NewAssistantMessage(block)
			continue
		}
		msgs[i] = anthropic.NewUserMessage(block)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(a.maxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: system,
			},
		}
	}
	return params
}

// Complete sends messages to the Messages API and returns the text of the reply.
func (a Anthropic) Complete(ctx context.Context, model string, messages []models.Message) (models.Message, error) {
	msg, err := a.client.Messages.New(ctx, a.messageParams(model, messages))
	if err != nil {
		return models.Message{}, providerError(anthropicProvider, fmt.Errorf("error sending request: %w", err))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return models.Message{}, emptyResultError(anthropicProvider, a.Name())
	}

	return models.Message{
		Role:    models.RoleAssistant,
		Content: sb.String(),
	}, nil
}

// Stream is the streaming variant of Complete. It yields text deltas as they arrive.
func (a Anthropic) Stream(ctx context.Context, model string, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream := a.client.Messages.NewStreaming(ctx, a.messageParams(model, messages))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok || delta.Delta.Type != "text_delta" || delta.Delta.Text == "" {
				continue
			}
			if !yield(delta.Delta.Text, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", providerError(anthropicProvider, fmt.Errorf("error receiving response: %w", err)))
		}
	}
}

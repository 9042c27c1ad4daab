package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama provides an implementation of the chat generator for Ollama's language models. It talks to a
// single Ollama server instance. Ollama has no API key, so the server host plays the role of the credential.
type Ollama struct {
	host string

	client *api.Client

	logger *slog.Logger
}

const ollamaProvider = "ollama"

// NewOllama creates a new Ollama instance with the specified host URL. The host parameter should be a valid
// URL pointing to an Ollama server; an invalid URL is reported as an error.
func NewOllama(host string, logger *slog.Logger) (Ollama, error) {
	o := Ollama{
		host:   host,
		logger: logger.With(slog.String("module", ollamaProvider)),
	}
	if host == "" {
		return o, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	o.client = api.NewClient(u, &http.Client{})

	return o, nil
}

// Name returns the display name of the provider.
func (o Ollama) Name() string {
	return "Ollama"
}

// Configured reports whether an Ollama host is set.
func (o Ollama) Configured() bool {
	return o.client != nil
}

func ollamaMessages(messages []models.Message) []api.Message {
	msgs := make([]api.Message, len(messages))
	for i, msg := range messages {
		msgs[i] = api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return msgs
}

// Complete sends messages to Ollama with streaming disabled and returns the reply.
func (o Ollama) Complete(ctx context.Context, model string, messages []models.Message) (models.Message, error) {
	f := false
	req := api.ChatRequest{
		Model:    model,
		Messages: ollamaMessages(messages),
		Stream:   &f,
	}

	var sb strings.Builder
	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		sb.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		return models.Message{}, providerError(ollamaProvider, fmt.Errorf("error sending request: %w", err))
	}

	if sb.Len() == 0 {
		return models.Message{}, emptyResultError(ollamaProvider, o.Name())
	}

	return models.Message{
		Role:    models.RoleAssistant,
		Content: sb.String(),
	}, nil
}

// Stream is the streaming variant of Complete. The response is streamed incrementally, one chunk per
// Ollama response line.
func (o Ollama) Stream(ctx context.Context, model string, messages []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		t := true
		req := api.ChatRequest{
			Model:    model,
			Messages: ollamaMessages(messages),
			Stream:   &t,
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// The callback may still fire after the consumer stopped, yield must not be called again then.
		stopped := false
		if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			if stopped || res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				stopped = true
				cancel()
			}
			return nil
		}); err != nil {
			if stopped || errors.Is(err, context.Canceled) {
				return
			}
			yield("", providerError(ollamaProvider, fmt.Errorf("error sending request: %w", err)))
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) OpenAI {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAI("test-key", srv.URL+"/v1", "", testLogger)
}

func TestOpenAIComplete(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "hi", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}]}`)
	})

	got, err := o.Complete(context.Background(), "gpt-4o-mini", hiTranscript)

	require.NoError(t, err)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "Hello!"}, got)
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    models.ProviderErrorKind
		wantMsg string
	}{
		{
			name:    "Rejected",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"model not found","type":"invalid_request_error"}}`,
			kind:    models.ProviderErrorRejected,
			wantMsg: "model not found",
		},
		{
			name:    "No choices",
			status:  http.StatusOK,
			body:    `{"id":"c1","choices":[]}`,
			kind:    models.ProviderErrorMalformed,
			wantMsg: "No response from OpenAI.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := o.Complete(context.Background(), "gpt-4o-mini", hiTranscript)

			pErr := requireProviderError(t, err, tt.kind)
			assert.Equal(t, tt.wantMsg, pErr.Message)
		})
	}
}

func TestOpenAIStream(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hel", "lo", "!"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var sb strings.Builder
	for chunk, err := range o.Stream(context.Background(), "gpt-4o-mini", hiTranscript) {
		require.NoError(t, err)
		sb.WriteString(chunk)
	}

	assert.Equal(t, "Hello!", sb.String())
}

func TestOpenAIGenerateImages(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)

		var body struct {
			Prompt string `json:"prompt"`
			Model  string `json:"model"`
			N      int    `json:"n"`
			Size   string `json:"size"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a cat", body.Prompt)
		assert.Equal(t, "dall-e-2", body.Model)
		assert.Equal(t, 3, body.N)
		assert.Equal(t, "1024x1024", body.Size)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[{"url":"https://img/1"},{"b64_json":"AAAA"},{"url":"https://img/3"}]}`)
	})

	got, err := o.GenerateImages(context.Background(), models.ImageRequest{
		Prompt:     "a cat",
		Amount:     3,
		Resolution: "1024x1024",
	})

	require.NoError(t, err)
	assert.Equal(t, []models.Image{
		{URL: "https://img/1"},
		{URL: "data:image/png;base64,AAAA"},
		{URL: "https://img/3"},
	}, got)
}

func TestOpenAIGenerateImagesEmpty(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[]}`)
	})

	_, err := o.GenerateImages(context.Background(), models.ImageRequest{Prompt: "a cat", Amount: 1, Resolution: "512x512"})

	pErr := requireProviderError(t, err, models.ProviderErrorMalformed)
	assert.Equal(t, "No response from OpenAI.", pErr.Message)
}

func TestOpenAIConfigured(t *testing.T) {
	assert.True(t, NewOpenAI("key", "", "", testLogger).Configured())
	assert.False(t, NewOpenAI("", "", "", testLogger).Configured())
}

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

func newOllamaServer(t *testing.T, handler http.HandlerFunc) Ollama {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOllama(srv.URL, testLogger)
	require.NoError(t, err)
	return o
}

func TestNewOllamaWithoutHost(t *testing.T) {
	o, err := NewOllama("", testLogger)

	require.NoError(t, err)
	assert.False(t, o.Configured())
}

func TestOllamaComplete(t *testing.T) {
	o := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Stream   *bool  `json:"stream"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		if assert.NotNil(t, body.Stream) {
			assert.False(t, *body.Stream)
		}
		assert.Len(t, body.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"llama3","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Hello!"},"done":true}`)
	})

	got, err := o.Complete(context.Background(), "llama3", hiTranscript)

	require.NoError(t, err)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "Hello!"}, got)
}

func TestOllamaCompleteError(t *testing.T) {
	o := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"llama3\" not found"}`)
	})

	_, err := o.Complete(context.Background(), "llama3", hiTranscript)

	require.Error(t, err)
	var pErr *models.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Detail(), "not found")
}

func TestOllamaStream(t *testing.T) {
	o := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, part := range []string{"Hel", "lo", "!"} {
			fmt.Fprintf(w, `{"model":"llama3","message":{"role":"assistant","content":%q},"done":false}`+"\n", part)
		}
		fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":""},"done":true}`+"\n")
	})

	var got []string
	for chunk, err := range o.Stream(context.Background(), "llama3", hiTranscript) {
		require.NoError(t, err)
		got = append(got, chunk)
	}

	assert.Equal(t, "Hello!", strings.Join(got, ""))
	assert.Len(t, got, 3)
}

func TestOllamaStreamStopsEarly(t *testing.T) {
	o := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, part := range []string{"a", "b", "c"} {
			fmt.Fprintf(w, `{"model":"llama3","message":{"role":"assistant","content":%q},"done":false}`+"\n", part)
		}
	})

	var got []string
	for chunk, err := range o.Stream(context.Background(), "llama3", hiTranscript) {
		require.NoError(t, err)
		got = append(got, chunk)
		break
	}

	assert.Equal(t, []string{"a"}, got)
}

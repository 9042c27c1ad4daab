package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/MegaGrindStone/genai-dashboard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.IsType(t, &openAIChatConfig{}, cfg.Chat)
	assert.IsType(t, &openAIImageConfig{}, cfg.Image)

	opts, err := cfg.options()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultResolutions, opts.Resolutions)
	assert.Empty(t, opts.ImagePromptSuffix)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, ""))

	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
}

func TestLoadConfigProviders(t *testing.T) {
	path := writeConfig(t, `
port: "9090"
logLevel: debug
logJSON: true
identity:
  mode: remote
  url: https://id.example/userinfo
chat:
  provider: anthropic
  model: claude-test
  maxTokens: 1024
  apiKey: sk-ant
  codePrompt: Only code.
image:
  provider: gemini
  apiKey: gm-key
  resolutions: ["1024x1024", "1792x1024"]
  promptSuffix: ", high detail"
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, identityConfig{Mode: "remote", URL: "https://id.example/userinfo"}, cfg.Identity)

	chat, ok := cfg.Chat.(*anthropicConfig)
	require.True(t, ok)
	assert.Equal(t, "claude-test", chat.Model)
	assert.Equal(t, 1024, chat.MaxTokens)
	assert.Equal(t, "sk-ant", chat.APIKey)

	image, ok := cfg.Image.(*geminiConfig)
	require.True(t, ok)
	assert.Equal(t, "gm-key", image.APIKey)

	opts, err := cfg.options()
	require.NoError(t, err)
	assert.Equal(t, "claude-test", opts.ConversationModel)
	assert.Equal(t, "claude-test", opts.CodeModel)
	assert.Equal(t, "Only code.", opts.CodeInstruction)
	assert.Equal(t, models.Resolutions{"1024x1024", "1792x1024"}, opts.Resolutions)
	assert.Equal(t, ", high detail", opts.ImagePromptSuffix)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "Unknown chat provider",
			content: "chat:\n  provider: mystery\n",
			wantErr: "unknown chat provider: mystery",
		},
		{
			name:    "Unknown image provider",
			content: "image:\n  provider: anthropic\n",
			wantErr: "unknown image provider: anthropic",
		},
		{
			name:    "Malformed YAML",
			content: "port: [",
			wantErr: "failed to decode config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigOptionsInvalidResolution(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "image:\n  resolutions: [\"huge\"]\n"))
	require.NoError(t, err)

	_, err = cfg.options()

	assert.ErrorContains(t, err, "invalid image resolution")
}

func TestConfigCredentialsFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := loadConfig(writeConfig(t, "image:\n  provider: gemini\n"))
	require.NoError(t, err)

	chat, err := cfg.Chat.chat(testLogger())
	require.NoError(t, err)
	assert.True(t, chat.Configured())
	assert.Equal(t, "OpenAI", chat.Name())

	image, err := cfg.Image.image(context.Background(), testLogger())
	require.NoError(t, err)
	assert.False(t, image.Configured())
	assert.Equal(t, "Gemini", image.Name())
}

func TestChatConfigRequiresModel(t *testing.T) {
	for _, provider := range []string{"anthropic", "ollama"} {
		t.Run(provider, func(t *testing.T) {
			cfg, err := loadConfig(writeConfig(t, "chat:\n  provider: "+provider+"\n"))
			require.NoError(t, err)

			_, err = cfg.Chat.chat(testLogger())

			assert.ErrorContains(t, err, "model is required")
		})
	}
}

func TestConfigCodeModel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "OpenAI keeps the built-in code model",
			content: "chat:\n  provider: openai\n  model: gpt-4o\n",
			want:    "",
		},
		{
			name:    "Default provider keeps the built-in code model",
			content: "chat:\n  model: gpt-4o\n",
			want:    "",
		},
		{
			name:    "Explicit code model",
			content: "chat:\n  provider: openai\n  model: gpt-4o\n  codeModel: gpt-4.1\n",
			want:    "gpt-4.1",
		},
		{
			name:    "Other providers reuse the chat model",
			content: "chat:\n  provider: ollama\n  model: llama3\n",
			want:    "llama3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeConfig(t, tt.content))
			require.NoError(t, err)

			opts, err := cfg.options()

			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.CodeModel)
		})
	}
}

func TestIdentityConfigWarnsInHeaderMode(t *testing.T) {
	tests := []struct {
		name     string
		cfg      identityConfig
		wantWarn bool
	}{
		{name: "Default", cfg: identityConfig{}, wantWarn: true},
		{name: "Custom header", cfg: identityConfig{Mode: "header", Header: "X-Forwarded-User"}, wantWarn: true},
		{name: "Remote", cfg: identityConfig{Mode: "remote", URL: "https://id.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer

			_, err := tt.cfg.identity(newLogger(&logs, "info", false))

			require.NoError(t, err)
			if !tt.wantWarn {
				assert.Empty(t, logs.String())
				return
			}
			assert.Contains(t, logs.String(), "level=WARN")
			assert.Contains(t, logs.String(), "Trusting the user ID header")
			header := tt.cfg.Header
			if header == "" {
				header = services.DefaultIdentityHeader
			}
			assert.Contains(t, logs.String(), "header="+header)
		})
	}
}

func TestIdentityConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     identityConfig
		want    any
		wantErr bool
	}{
		{name: "Default", cfg: identityConfig{}, want: services.HeaderIdentity{}},
		{name: "Header", cfg: identityConfig{Mode: "header", Header: "X-Forwarded-User"}, want: services.HeaderIdentity{}},
		{name: "Remote", cfg: identityConfig{Mode: "remote", URL: "https://id.example"}, want: services.RemoteIdentity{}},
		{name: "Remote without URL", cfg: identityConfig{Mode: "remote"}, wantErr: true},
		{name: "Unknown mode", cfg: identityConfig{Mode: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.identity(testLogger())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestNewServer(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := loadConfig(writeConfig(t, "port: \"9191\"\n"))
	require.NoError(t, err)

	var logs bytes.Buffer
	srv, err := newServer(context.Background(), cfg, newLogger(&logs, "info", false))

	require.NoError(t, err)
	assert.Equal(t, ":9191", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Contains(t, logs.String(), "Chat provider has no credential")
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version, strings.TrimSpace(out.String()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", true)

	logger.Info("hidden")
	logger.Warn("shown", "module", "test")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

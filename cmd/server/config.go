package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/MegaGrindStone/genai-dashboard/internal/handlers"
	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/MegaGrindStone/genai-dashboard/internal/services"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type chatConfig interface {
	base() BaseChatConfig
	chat(logger *slog.Logger) (handlers.ChatGenerator, error)
}

type imageConfig interface {
	base() BaseImageConfig
	image(ctx context.Context, logger *slog.Logger) (handlers.ImageGenerator, error)
}

// BaseChatConfig contains the common fields for all chat provider configurations.
type BaseChatConfig struct {
	Provider           string `yaml:"provider"`
	Model              string `yaml:"model"`
	CodeModel          string `yaml:"codeModel"`
	ConversationPrompt string `yaml:"conversationPrompt"`
	CodePrompt         string `yaml:"codePrompt"`
}

// BaseImageConfig contains the common fields for all image provider configurations.
type BaseImageConfig struct {
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	Resolutions  []string `yaml:"resolutions"`
	PromptSuffix string   `yaml:"promptSuffix"`
}

type config struct {
	Port     string         `yaml:"port"`
	LogLevel string         `yaml:"logLevel"`
	LogJSON  bool           `yaml:"logJSON"`
	Identity identityConfig `yaml:"identity"`
	Chat     chatConfig     `yaml:"chat"`
	Image    imageConfig    `yaml:"image"`
}

type identityConfig struct {
	// Mode is either "header" (default) or "remote".
	Mode   string `yaml:"mode"`
	Header string `yaml:"header"`
	URL    string `yaml:"url"`
}

type openAIChatConfig struct {
	BaseChatConfig `yaml:",inline"`
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseURL"`
}

type anthropicConfig struct {
	BaseChatConfig `yaml:",inline"`
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseURL"`
	MaxTokens      int    `yaml:"maxTokens"`
}

type ollamaConfig struct {
	BaseChatConfig `yaml:",inline"`
	Host           string `yaml:"host"`
}

type openAIImageConfig struct {
	BaseImageConfig `yaml:",inline"`
	APIKey          string `yaml:"apiKey"`
	BaseURL         string `yaml:"baseURL"`
}

type geminiConfig struct {
	BaseImageConfig `yaml:",inline"`
	APIKey          string `yaml:"apiKey"`
	BaseURL         string `yaml:"baseURL"`
}

const (
	defaultPort     = "8080"
	defaultProvider = "openai"
)

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port     string         `yaml:"port"`
		LogLevel string         `yaml:"logLevel"`
		LogJSON  bool           `yaml:"logJSON"`
		Identity identityConfig `yaml:"identity"`
		Chat     map[string]any `yaml:"chat"`
		Image    map[string]any `yaml:"image"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.LogLevel = rawConfig.LogLevel
	c.LogJSON = rawConfig.LogJSON
	c.Identity = rawConfig.Identity

	var chat chatConfig
	switch provider := providerOf(rawConfig.Chat); provider {
	case "openai":
		chat = &openAIChatConfig{}
	case "anthropic":
		chat = &anthropicConfig{}
	case "ollama":
		chat = &ollamaConfig{}
	default:
		return eris.Errorf("unknown chat provider: %s", provider)
	}
	if err := decodeSection(rawConfig.Chat, chat); err != nil {
		return eris.Wrap(err, "failed to decode chat config")
	}

	var image imageConfig
	switch provider := providerOf(rawConfig.Image); provider {
	case "openai":
		image = &openAIImageConfig{}
	case "gemini":
		image = &geminiConfig{}
	default:
		return eris.Errorf("unknown image provider: %s", provider)
	}
	if err := decodeSection(rawConfig.Image, image); err != nil {
		return eris.Wrap(err, "failed to decode image config")
	}

	c.Chat = chat
	c.Image = image

	return nil
}

func providerOf(section map[string]any) string {
	provider, ok := section["provider"].(string)
	if !ok || provider == "" {
		return defaultProvider
	}
	return provider
}

// decodeSection re-decodes a raw provider section into its concrete configuration.
func decodeSection(section map[string]any, out any) error {
	if len(section) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(section)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}

// loadConfig reads the configuration at path. A missing file, or an empty one, yields the defaults. A .env
// file in the working directory is loaded first so its variables can supply credentials.
func loadConfig(path string) (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, eris.Wrap(err, "failed to load .env file")
	}

	cfg := config{}
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return config{}, eris.Wrapf(err, "failed to open config file: %s", path)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, eris.Wrapf(err, "failed to decode config file: %s", path)
		}
	}

	cfg.setDefaults()
	return cfg, nil
}

func (c *config) setDefaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.Chat == nil {
		c.Chat = &openAIChatConfig{}
	}
	if c.Image == nil {
		c.Image = &openAIImageConfig{}
	}
}

func (c config) options() (handlers.Options, error) {
	chat := c.Chat.base()
	image := c.Image.base()

	resolutions := models.DefaultResolutions
	if len(image.Resolutions) > 0 {
		resolutions = make(models.Resolutions, len(image.Resolutions))
		for i, r := range image.Resolutions {
			res := models.Resolution(r)
			if _, _, ok := res.Dimensions(); !ok {
				return handlers.Options{}, eris.Errorf("invalid image resolution: %q", r)
			}
			resolutions[i] = res
		}
	}

	// The built-in code model is an OpenAI model, other providers reuse their chat model.
	codeModel := chat.CodeModel
	if codeModel == "" && chat.Provider != "" && chat.Provider != defaultProvider {
		codeModel = chat.Model
	}

	return handlers.Options{
		ConversationModel:       chat.Model,
		CodeModel:               codeModel,
		ConversationInstruction: chat.ConversationPrompt,
		CodeInstruction:         chat.CodePrompt,
		Resolutions:             resolutions,
		ImagePromptSuffix:       image.PromptSuffix,
	}, nil
}

func (i identityConfig) identity(logger *slog.Logger) (handlers.Identity, error) {
	switch i.Mode {
	case "", "header":
		identity := services.NewHeaderIdentity(i.Header)
		logger.Warn("Trusting the user ID header as sent, the server must sit behind a proxy that sets it",
			slog.String("mode", "header"),
			slog.String("header", identity.Header()))
		return identity, nil
	case "remote":
		if i.URL == "" {
			return nil, eris.New("identity url is required for remote mode")
		}
		return services.NewRemoteIdentity(i.URL, logger), nil
	default:
		return nil, eris.Errorf("unknown identity mode: %s", i.Mode)
	}
}

func envOr(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func (o openAIChatConfig) base() BaseChatConfig {
	return o.BaseChatConfig
}

func (o openAIChatConfig) chat(logger *slog.Logger) (handlers.ChatGenerator, error) {
	return services.NewOpenAI(envOr(o.APIKey, "OPENAI_API_KEY"), o.BaseURL, "", logger), nil
}

func (a anthropicConfig) base() BaseChatConfig {
	return a.BaseChatConfig
}

func (a anthropicConfig) chat(logger *slog.Logger) (handlers.ChatGenerator, error) {
	if a.Model == "" {
		return nil, eris.New("model is required for anthropic")
	}
	return services.NewAnthropic(envOr(a.APIKey, "ANTHROPIC_API_KEY"), a.BaseURL, a.MaxTokens, logger), nil
}

func (o ollamaConfig) base() BaseChatConfig {
	return o.BaseChatConfig
}

func (o ollamaConfig) chat(logger *slog.Logger) (handlers.ChatGenerator, error) {
	if o.Model == "" {
		return nil, eris.New("model is required for ollama")
	}
	gen, err := services.NewOllama(envOr(o.Host, "OLLAMA_HOST"), logger)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create ollama client")
	}
	return gen, nil
}

func (o openAIImageConfig) base() BaseImageConfig {
	return o.BaseImageConfig
}

func (o openAIImageConfig) image(_ context.Context, logger *slog.Logger) (handlers.ImageGenerator, error) {
	return services.NewOpenAI(envOr(o.APIKey, "OPENAI_API_KEY"), o.BaseURL, o.Model, logger), nil
}

func (g geminiConfig) base() BaseImageConfig {
	return g.BaseImageConfig
}

func (g geminiConfig) image(ctx context.Context, logger *slog.Logger) (handlers.ImageGenerator, error) {
	gen, err := services.NewGemini(ctx, envOr(g.APIKey, "GEMINI_API_KEY"), g.BaseURL, g.Model, logger)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create gemini client")
	}
	return gen, nil
}

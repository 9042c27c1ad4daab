//go:generate mockgen -source=$GOFILE -destination=${GOFILE}_mock.go -package=$GOPACKAGE

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"iter"
	"log/slog"
	"net/http"

	genaidashboard "github.com/MegaGrindStone/genai-dashboard"
	"github.com/MegaGrindStone/genai-dashboard/internal/models"
)

// ChatGenerator represents a chat completion provider. Complete returns the single reply to a transcript,
// Stream returns an iterator that yields reply chunks and potential errors.
type ChatGenerator interface {
	Name() string
	Configured() bool
	Complete(ctx context.Context, model string, messages []models.Message) (models.Message, error)
	Stream(ctx context.Context, model string, messages []models.Message) iter.Seq2[string, error]
}

// ImageGenerator represents an image generation provider. GenerateImages returns the generated image
// locators in provider order.
type ImageGenerator interface {
	Name() string
	Configured() bool
	GenerateImages(ctx context.Context, req models.ImageRequest) ([]models.Image, error)
}

// Identity resolves the authenticated user behind a request. An empty user ID means the caller is not
// authenticated.
type Identity interface {
	UserID(r *http.Request) (string, error)
}

// Options tunes the behaviour of the mediators. Zero values select the defaults.
type Options struct {
	ConversationModel       string
	CodeModel               string
	ConversationInstruction string
	CodeInstruction         string

	// Resolutions is the set of image sizes the image tool accepts.
	Resolutions models.Resolutions
	// ImagePromptSuffix is appended verbatim to every image prompt before it is forwarded.
	ImagePromptSuffix string
}

// Main mediates between the dashboard tools and the generation providers. It keeps no state between
// requests: every chat request carries its full transcript.
type Main struct {
	templates *template.Template
	static    http.Handler

	chat     ChatGenerator
	image    ImageGenerator
	identity Identity

	conversation chatTool
	code         chatTool

	resolutions  models.Resolutions
	promptSuffix string

	logger *slog.Logger
}

// chatTool is the per-capability configuration of the chat mediator.
type chatTool struct {
	name        string
	model       string
	instruction string
}

const (
	defaultConversationModel = "gpt-4o-mini"
	defaultCodeModel         = "gpt-4"

	errLoggerKey = "err"
)

// NewMain creates a new Main instance with the provided generators and identity adapter. It parses the
// HTML templates from the embedded filesystem.
func NewMain(
	chat ChatGenerator,
	image ImageGenerator,
	identity Identity,
	opts Options,
	logger *slog.Logger,
) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		genaidashboard.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	staticFS, err := fs.Sub(genaidashboard.StaticFS, "static")
	if err != nil {
		return Main{}, fmt.Errorf("failed to open static files: %w", err)
	}

	resolutions := opts.Resolutions
	if len(resolutions) == 0 {
		resolutions = models.DefaultResolutions
	}

	return Main{
		templates: tmpl,
		static:    http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
		chat:      chat,
		image:     image,
		identity:  identity,
		conversation: chatTool{
			name:        "conversation",
			model:       valueOr(opts.ConversationModel, defaultConversationModel),
			instruction: valueOr(opts.ConversationInstruction, models.ConversationInstruction),
		},
		code: chatTool{
			name:        "code",
			model:       valueOr(opts.CodeModel, defaultCodeModel),
			instruction: valueOr(opts.CodeInstruction, models.CodeInstruction),
		},
		resolutions:  resolutions,
		promptSuffix: opts.ImagePromptSuffix,
		logger:       logger.With(slog.String("module", "handlers")),
	}, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// writeJSON writes a JSON response with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

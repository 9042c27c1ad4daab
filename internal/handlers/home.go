package handlers

import (
	"net/http"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
)

type toolKind string

const (
	chatToolKind  toolKind = "chat"
	imageToolKind toolKind = "image"
)

type tool struct {
	Label       string
	Description string
	Href        string
	Endpoint    string
	Color       string
	Kind        toolKind
	Placeholder string
}

type homePageData struct {
	Tools []tool
}

type toolPageData struct {
	Tool        tool
	Amounts     []int
	Resolutions models.Resolutions
	Default     models.Resolution
}

var dashboardTools = []tool{
	{
		Label:       "Conversation",
		Description: "Chat with the assistant.",
		Href:        "/conversation",
		Endpoint:    "/api/conversation",
		Color:       "violet",
		Kind:        chatToolKind,
		Placeholder: "How do I calculate the radius of a circle?",
	},
	{
		Label:       "Image Generation",
		Description: "Turn your prompt into an image.",
		Href:        "/image",
		Endpoint:    "/api/image",
		Color:       "pink",
		Kind:        imageToolKind,
		Placeholder: "A picture of a horse in Swiss alps",
	},
	{
		Label:       "Code Generation",
		Description: "Generate code using descriptive text.",
		Href:        "/code",
		Endpoint:    "/api/code",
		Color:       "green",
		Kind:        chatToolKind,
		Placeholder: "Simple toggle button using react hooks.",
	},
}

// HandleHome renders the dashboard listing the available tools.
func (m Main) HandleHome(w http.ResponseWriter, _ *http.Request) {
	data := homePageData{
		Tools: dashboardTools,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := m.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// HandleTool renders the page of a single tool. The page talks to the tool's API endpoint from the browser.
func (m Main) HandleTool(t tool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := toolPageData{
			Tool:        t,
			Resolutions: m.resolutions,
		}
		if t.Kind == imageToolKind {
			for i := models.MinImageAmount; i <= models.MaxImageAmount; i++ {
				data.Amounts = append(data.Amounts, i)
			}
			// An absent resolution resolves to the default, so the form preselects the same value.
			data.Default, _ = models.ParseResolution(nil, m.resolutions)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := m.templates.ExecuteTemplate(w, "tool.html", data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// HandleHealth is a basic liveness endpoint.
func (m Main) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

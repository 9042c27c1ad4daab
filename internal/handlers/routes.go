package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Router returns the HTTP router serving the dashboard and the tool endpoints. Request IDs are assigned
// before the access log runs so every log line carries one.
func (m Main) Router() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(
		RequestID(),
		AccessLog(m.logger),
		Recoverer(m.logger),
	)

	mux.Handle("/static/*", m.static)
	mux.Get("/", m.HandleHome)
	mux.Get("/healthz", m.HandleHealth)
	for _, t := range dashboardTools {
		mux.Get(t.Href, m.HandleTool(t))
	}

	mux.Route("/api", func(r chi.Router) {
		r.Post("/conversation", m.HandleConversation)
		r.Post("/conversation/stream", m.HandleConversationStream)
		r.Post("/code", m.HandleCode)
		r.Post("/code/stream", m.HandleCodeStream)
		r.Post("/image", m.HandleImage)
	})

	return mux
}

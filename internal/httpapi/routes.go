// Package httpapi is the local HTTP surface a display process drives: it
// reads the derived view and prompt state, and turns intents into prompt
// resolutions and commands.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/ws"
)

func SetupRoutes(d Deps) http.Handler {
	d.Logger = telemetry.OrNop(d.Logger).Named("httpapi")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/state", State(d))
	r.Route("/prompt", func(r chi.Router) {
		r.Post("/resolve", ResolvePrompt(d))
		r.Post("/cancel", CancelPrompt(d))
	})
	r.Route("/intents", func(r chi.Router) {
		r.Post("/play-card", PlayCard(d))
		r.Post("/buy-card", BuyCard(d))
		r.Post("/end-turn", EndTurn(d))
	})
	r.Get("/ws", ws.Handler(d.Stream, d.Logger))
	return r
}

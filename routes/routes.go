package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/go-barry/pagebridge/core"
)

// Register mounts the application routes on r.
func Register(r chi.Router, b *core.Bridge) {
	r.Get("/", b.Handle(Index))
	r.Get("/about", b.Handle(About))
	r.Post("/data", Data)
}

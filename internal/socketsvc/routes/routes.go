package routes

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	"github.com/Mazen286/cubecraft/internal/socketsvc/handlers"
)

var tokenAuth *jwtauth.JWTAuth

func SetRoutes(r chi.Router, h *handlers.Handler) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", h.HandleWebSocket)
		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)
		})
	})
}

// InitAuth sets the HS256 key used on secured routes. Call before SetRoutes.
func InitAuth(secret string) {
	tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}

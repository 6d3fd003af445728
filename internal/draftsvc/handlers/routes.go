package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/sessions", h.CreateSession)
			r.Post("/sessions/join", h.JoinSession)

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.CancelSession)
				r.Get("/bids", h.BidHistory)
				r.Post("/bots", h.AddBot)
				r.Delete("/bots/{botID}", h.RemoveBot)
				r.Post("/start", h.StartDraft)
				r.Post("/picks", h.MakePick)
				r.Post("/select", h.SelectCard)
				r.Post("/bids", h.PlaceBid)
				r.Post("/pass", h.PassBid)
				r.Post("/pause", h.TogglePause)
				r.Post("/timeouts", h.CheckTimeouts)
			})
		})
	})
}

// InitAuth sets the HS256 key used to verify bearer tokens.
func (h *Handler) InitAuth(secret string, debug bool) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)

	if !debug {
		return
	}
	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": "draftsvc",
		"exp":        expirationTime,
	})
	if err != nil {
		log.Warnf("unable to issue debug token: %v", err)
		return
	}
	log.Debugf("DEBUG: JWT for testing expires in 7 days: %s", tokenString)
}

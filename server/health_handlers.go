package server

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

// HealthHandler reports liveness and the current session status
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Session: string(s.store.Status())}); err != nil {
			log.Err(err).Msg("Failed to write health response")
		}
	}
}

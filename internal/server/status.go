package server

import (
	"encoding/json"
	"net/http"

	"match-collector/internal/api"
	"match-collector/internal/collector"
	"match-collector/internal/middleware"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type ProgressSource interface {
	Progress() collector.Progress
}

type RateLimitSource interface {
	GetRateLimitInfo() api.RateLimitInfo
}

// StatusServer exposes a read-only view of a running collection.
type StatusServer struct {
	progress ProgressSource
	limits   RateLimitSource
	logger   zerolog.Logger
}

type StatusResponse struct {
	collector.Progress
	RateLimit *api.RateLimitInfo `json:"rate_limit,omitempty"`
}

func NewStatusServer(progress ProgressSource, limits RateLimitSource, logger zerolog.Logger) *StatusServer {
	return &StatusServer{
		progress: progress,
		limits:   limits,
		logger:   logger.With().Str("component", "status_server").Logger(),
	}
}

func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	return middleware.RequestID(s.logger)(c.Handler(mux))
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Progress: s.progress.Progress()}
	if s.limits != nil {
		info := s.limits.GetRateLimitInfo()
		resp.RateLimit = &info
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to write status response")
	}
}

// Package adminapi is the ambient HTTP control plane SPEC_FULL.md §C adds:
// health, job-queue stats, installed-skill listing, and a context-search
// read path, none of which spec.md's pure CLI/worker-daemon design
// exposes over HTTP. Grounded on the teacher's stdlib-net/http files
// (internal/middleware/recovery.go, internal/httputil/*.go) rather than
// its fiber-based cmd/server/main.go, since this is a much smaller
// introspection-only surface.
package adminapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"focus/internal/config"
	"focus/internal/domain/repositories"
	"focus/internal/middleware"
	"focus/internal/projectstate"
)

// Server holds the admin API's dependencies and builds its http.Handler.
type Server struct {
	Jobs     repositories.JobQueue
	Entities repositories.EntityStore
	State    *projectstate.Store
	Logger   *slog.Logger
}

// NewHandler assembles the routed, CORS-wrapped, auth-gated admin API
// handler. verifier may be nil (auth disabled) when cfg.JWKSURL is empty.
func (s *Server) NewHandler(cfg config.AdminSettings, verifier JWTVerifier) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/jobs/stats", s.handleJobStats)
	mux.HandleFunc("GET /v1/skills", s.handleListSkills)
	mux.HandleFunc("GET /v1/context/search", s.handleContextSearch)

	var handler http.Handler = mux
	handler = bearerAuth(verifier, s.Logger)(handler)

	corsOrigins := []string{"*"}
	if cfg.CORSOrigins != "" {
		corsOrigins = nil
		for _, origin := range strings.Split(cfg.CORSOrigins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				corsOrigins = append(corsOrigins, trimmed)
			}
		}
	}
	handler = cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)

	handler = middleware.Recovery(s.Logger)(handler)
	return handler
}

// Package api is the HTTP presentation boundary. It owns request parsing,
// status codes and the privilege gate; the dialogue and review logic lives
// in the packages it calls into.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ippolabs/ippo/internal/coach"
	"github.com/ippolabs/ippo/internal/directory"
	"github.com/ippolabs/ippo/internal/review"
	"github.com/ippolabs/ippo/internal/transcript"
)

type Server struct {
	router   *chi.Mux
	port     int
	apiToken string

	dir      *directory.Directory
	sessions *coach.Sessions
	coach    *coach.Coach
	store    transcript.Store
	reviewer *review.Reviewer
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, dir *directory.Directory, sessions *coach.Sessions, c *coach.Coach, store transcript.Store, reviewer *review.Reviewer, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		apiToken: apiToken,
		dir:      dir,
		sessions: sessions,
		coach:    c,
		store:    store,
		reviewer: reviewer,
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.startSession)
		r.Get("/sessions/{employeeID}", s.getSession)
		r.Post("/sessions/{employeeID}/messages", s.postMessage)
		r.Delete("/sessions/{employeeID}", s.endSession)
		r.Get("/employees/{employeeID}/goal", s.getGoal)

		// Privilege checking happens here, at the boundary; the review and
		// export code has no notion of an admin.
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(apiToken))
			r.Post("/reviews", s.postReview)
			r.Get("/employees/{employeeID}/transcript", s.getTranscript)
			r.Get("/employees/{employeeID}/transcript.csv", s.getTranscriptCSV)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bearerAuth gates privileged routes. An unconfigured token disables them
// entirely rather than leaving them open.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

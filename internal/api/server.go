// Package api exposes the calendar assistant over HTTP: one
// natural-language endpoint driving the full pipeline, plus plain CRUD
// and search routes on the event store.
package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/store"
	"github.com/jungfsg/Calender/internal/workflow"
)

// Server holds the HTTP transport's collaborators.
type Server struct {
	engine *workflow.Engine
	store  store.CalendarStore
	log    zerolog.Logger
}

// NewServer builds the transport. The engine drives ai-chat; the store
// backs the CRUD routes directly.
func NewServer(engine *workflow.Engine, cal store.CalendarStore, log zerolog.Logger) *Server {
	return &Server{engine: engine, store: cal, log: log}
}

// Router builds the mux router with logging and recovery middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.logMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1/calendar").Subrouter()
	v1.HandleFunc("/ai-chat", s.handleAIChat).Methods(http.MethodPost)
	v1.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	v1.HandleFunc("/events/search", s.handleSearchEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id}", s.handleGetEvent).Methods(http.MethodGet)
	v1.HandleFunc("/events/{id}", s.handleUpdateEvent).Methods(http.MethodPut)
	v1.HandleFunc("/events/{id}", s.handleDeleteEvent).Methods(http.MethodDelete)
	v1.HandleFunc("/events/{id}/conflicts", s.handleConflicts).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("handler panic")
				writeInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Package api exposes the tracking ingest endpoint over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadgrid/tracker-cli/internal/model"
	"github.com/leadgrid/tracker-cli/internal/pipeline"
)

// Processor handles one tracking event. Implemented by pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, event *model.TrackingEvent) (*pipeline.Result, error)
}

// Server routes tracking-script requests to the pipeline.
type Server struct {
	processor Processor
	router    chi.Router

	// processTimeout bounds the background processing of one event after
	// its request has been acknowledged.
	processTimeout time.Duration
}

// New builds the HTTP surface. The tracking snippet runs on customer
// sites, so CORS must admit the configured origins (usually "*").
func New(processor Processor, allowedOrigins []string) *Server {
	s := &Server{
		processor:      processor,
		processTimeout: 30 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/v1/track", s.handleTrack)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTrack acknowledges the event immediately and processes it in the
// background. The tracking snippet fires on page unload and cannot wait
// for enrichment round trips.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var event model.TrackingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if event.TenantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant_id is required"})
		return
	}
	if event.IP == "" {
		event.IP = clientIP(r)
	}
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}

	// The event id ties the 202 response to the background processing logs.
	eventID := uuid.NewString()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.processTimeout)
		defer cancel()

		result, err := s.processor.Process(ctx, &event)
		if err != nil {
			zap.S().Errorw("event processing failed",
				"event_id", eventID, "tenant", event.TenantID,
				"domain", event.Domain, "error", err)
			return
		}
		zap.S().Debugw("event processed",
			"event_id", eventID, "tenant", event.TenantID,
			"session", result.SessionID, "enriched", result.Enriched,
			"score", result.Score)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"event_id": eventID,
	})
}

// clientIP resolves the caller's address. middleware.RealIP has already
// folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package api exposes the operator surface of the tracker over HTTP: a manual
// geolocate trigger, an observation ingest endpoint for remote entities and
// read access to published entity attributes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
	"github.com/wneessen/wifi-geolocate/internal/geolocate"
	"github.com/wneessen/wifi-geolocate/internal/logger"
	"github.com/wneessen/wifi-geolocate/internal/tracker"
)

const shutdownTimeout = time.Second * 5

// Server serves the HTTP API.
type Server struct {
	logger  *logger.Logger
	tracker *tracker.Tracker
	router  *mux.Router
	server  *http.Server
}

// observationRequest is the request body for geolocate and ingest calls. The
// field name follows the wire format of the geolocation APIs.
type observationRequest struct {
	AccessPoints []fingerprint.AccessPoint `json:"wifiAccessPoints"`
}

// New returns a new API server for the given tracker, listening on addr once
// served.
func New(trk *tracker.Tracker, log *logger.Logger, addr string) *Server {
	s := &Server{
		logger:  log,
		tracker: trk,
		router:  mux.NewRouter(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: time.Second * 5,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestLogger)
	s.router.HandleFunc("/", s.handleHealthcheck).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/geolocate/{entity}", s.handleGeolocate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/entities", s.handleEntities).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/entities/{entity}", s.handleAttributes).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/entities/{entity}/observations", s.handleObservations).Methods(http.MethodPost)
}

// Router returns the underlying HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Serve runs the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

// handleHealthcheck reports service readiness.
func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGeolocate is the manual trigger: it resolves the submitted observation
// set for the entity, honoring the force flag.
func (s *Server) handleGeolocate(w http.ResponseWriter, r *http.Request) {
	entityID := mux.Vars(r)["entity"]

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid force parameter %q", raw))
			return
		}
		force = parsed
	}

	req := new(observationRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}

	resolution, err := s.tracker.Resolve(r.Context(), entityID, req.AccessPoints, force)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolution)
}

// handleObservations ingests an observation delivery for an entity. Each
// delivery drives a regular, non-forced resolve cycle.
func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	entityID := mux.Vars(r)["entity"]

	req := new(observationRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}

	resolution, err := s.tracker.Resolve(r.Context(), entityID, req.AccessPoints, false)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resolution)
}

// handleEntities lists all tracked entities.
func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"entities": s.tracker.Entities()})
}

// handleAttributes returns the published location attributes of an entity.
func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	entityID := mux.Vars(r)["entity"]
	attrs, ok := s.tracker.Attributes(entityID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("no location published for entity %q", entityID))
		return
	}
	s.writeJSON(w, http.StatusOK, attrs)
}

// writeResolveError maps the resolver error taxonomy onto HTTP statuses.
func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, geolocate.ErrNoAccessPoints):
		status = http.StatusBadRequest
	case errors.Is(err, geolocate.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, geolocate.ErrQuotaExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, geolocate.ErrAuth), errors.Is(err, geolocate.ErrNetwork):
		status = http.StatusBadGateway
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode API response", logger.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger assigns every request an ID and logs method, path, status and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := newRequestID()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)
		s.logger.Debug("API request handled", slog.String("request_id", requestID),
			slog.String("method", r.Method), slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status), slog.Duration("duration", time.Since(start)))
	})
}

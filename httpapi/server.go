// Package httpapi exposes the ingestion and status surface over HTTP. It is a
// deliberately thin layer: routing only, no auth, no business logic. The
// campus backend mounts its own authenticated routes in front of this.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/cepro/campuswatch/automation"
	"github.com/cepro/campuswatch/forecast"
	"github.com/cepro/campuswatch/ingest"
)

type Server struct {
	pipeline  *ingest.Pipeline
	scheduler *automation.Scheduler
	forecasts *forecast.Client
	http      *http.Server
	logger    *slog.Logger
}

func NewServer(addr string, pipeline *ingest.Pipeline, scheduler *automation.Scheduler, forecasts *forecast.Client) *Server {
	s := &Server{
		pipeline:  pipeline,
		scheduler: scheduler,
		forecasts: forecasts,
		logger:    slog.Default().With("component", "httpapi"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.getHealth).Methods("GET")
	router.HandleFunc("/readings", s.postReadings).Methods("POST")
	router.HandleFunc("/rooms/status", s.getRoomStatus).Methods("GET")
	router.HandleFunc("/forecast", s.getForecast).Methods("GET")

	s.http = &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingHandler(os.Stdout, router),
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.http.Shutdown(ctx)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ingestResponse mirrors the partial-failure contract of the pipeline: how
// many entries were accepted, and why each rejected entry failed.
type ingestResponse struct {
	Accepted int                 `json:"accepted"`
	Errors   []ingest.EntryError `json:"errors,omitempty"`
}

func (s *Server) postReadings(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ingestResponse{
		Accepted: len(result.Accepted),
		Errors:   result.Errors,
	})
}

func (s *Server) getRoomStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.scheduler.Status(r.Context(), time.Now())
	if err != nil {
		s.logger.Error("status query failed", "error", err)
		http.Error(w, "status query failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

// forecastResponse carries the raw service forecast plus the current campus
// load measured against it.
type forecastResponse struct {
	forecast.Forecast
	ObservedKW    *float64 `json:"observedKW,omitempty"`
	DeviationKW   *float64 `json:"deviationKW,omitempty"`
	OverPredicted *bool    `json:"overPredicted,omitempty"`
}

func (s *Server) getForecast(w http.ResponseWriter, r *http.Request) {
	result, err := s.forecasts.Forecast(r.Context())
	if err != nil {
		s.logger.Error("forecast fetch failed", "error", err)
		http.Error(w, "forecast service unavailable", http.StatusBadGateway)
		return
	}

	response := forecastResponse{Forecast: result}

	now := time.Now()
	statuses, err := s.scheduler.Status(r.Context(), now)
	if err != nil {
		// the forecast is still useful without the live comparison
		s.logger.Error("status query failed", "error", err)
	} else {
		observed := campusLoadKW(statuses)
		hour := float64(now.Hour()) + float64(now.Minute())/60
		deviation := result.DeviationKW(hour, observed)
		response.ObservedKW = &observed
		if !math.IsNaN(deviation) {
			over := deviation < 0
			response.DeviationKW = &deviation
			response.OverPredicted = &over
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// campusLoadKW sums the latest fresh readings across all rooms.
func campusLoadKW(statuses []automation.RoomStatus) float64 {
	var totalW float64
	for _, status := range statuses {
		if status.StaleReading {
			continue
		}
		totalW += status.PowerW
	}
	return totalW / 1000
}

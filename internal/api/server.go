package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"skillpulse/internal/batch"
	"skillpulse/internal/cache"
	"skillpulse/internal/domain"
)

// Batch types accepted by the process endpoint.
var validBatchTypes = map[string]bool{
	"engagement":        true,
	"trending":          true,
	"notifications":     true,
	"cache_maintenance": true,
	"analytics":         true,
}

type Server struct {
	r         *chi.Mux
	processor *batch.Processor
	jobs      *batch.Jobs
	cache     cache.Cache
}

func NewServer(processor *batch.Processor, jobs *batch.Jobs, c cache.Cache) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{r: r, processor: processor, jobs: jobs, cache: c}

	r.Get("/health", s.health)
	r.Get("/metrics", s.metrics)
	r.Get("/api/batch/status", s.status)
	r.Post("/api/batch/start", s.start)
	r.Post("/api/batch/stop", s.stop)
	r.Post("/api/batch/process", s.process)
	r.Post("/api/batch/cleanup", s.cleanup)
	r.Get("/api/trending", s.trending)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("skillpulse_up 1\n"))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.processor.Status())
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.processor.Start()
	writeJSON(w, http.StatusOK, map[string]string{"message": "batch processing started"})
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	s.processor.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"message": "batch processing stopped"})
}

type processReq struct {
	BatchType string `json:"batch_type"`
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var req processReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !validBatchTypes[req.BatchType] {
		http.Error(w, "batch_type must be one of: engagement, trending, notifications, cache_maintenance, analytics", http.StatusBadRequest)
		return
	}

	res := s.processor.RunNow(r.Context(), req.BatchType)
	if !res.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": res.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         res.Message,
		"processed_items": res.ProcessedItems,
	})
}

type cleanupReq struct {
	DaysOld int `json:"days_old"`
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	req := cleanupReq{DaysOld: batch.DefaultCleanupDays}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.DaysOld < 1 || req.DaysOld > 365 {
		http.Error(w, "days_old must be between 1 and 365", http.StatusBadRequest)
		return
	}

	summary, err := s.jobs.Cleanup(r.Context(), req.DaysOld)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "old data cleaned up",
		"summary": summary,
	})
}

func (s *Server) trending(w http.ResponseWriter, r *http.Request) {
	items := []domain.TrendingItem{}
	if v, ok := s.cache.Get("trending:skills"); ok {
		if cached, ok := v.([]domain.TrendingItem); ok {
			items = cached
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trending_items": items})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthController struct {
	version string
	checks  map[string]Check
	timeout time.Duration
}

func NewHealthController(version string, checks map[string]Check) *HealthController {
	return &HealthController{
		version: version,
		checks:  checks,
		timeout: 5 * time.Second,
	}
}

type HealthCheckResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

type rootResponse struct {
	Message string `json:"message"`
	Docs    string `json:"docs"`
	Health  string `json:"health"`
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthCheckResponse{Status: "healthy", Version: h.version})
}

func (h *HealthController) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, rootResponse{
		Message: "Welcome to ChatMate API",
		Docs:    "/docs",
		Health:  "/health",
	})
}

// Ready pings every dependency concurrently and answers 503 if any fails.
func (h *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = check(ctx)
		}(i, h.checks[name])
	}
	wg.Wait()

	response := ReadinessResponse{
		Status:       "ready",
		Dependencies: make(map[string]string, len(names)),
	}
	code := http.StatusOK
	for i, name := range names {
		if results[i] != nil {
			response.Dependencies[name] = "unavailable"
			response.Status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		response.Dependencies[name] = "ok"
	}

	respondWithJSON(w, code, response)
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

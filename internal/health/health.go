// Package health exposes liveness, readiness and component health
// endpoints for long-running collection workers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/seolens/linkscope/internal/logging"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of probing one component.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// Response is the aggregate health report.
type Response struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    []Check           `json:"checks"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Checker probes one component.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler aggregates registered checkers behind HTTP endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	metadata map[string]string
	logger   *logging.Logger
	ready    bool
}

func NewHandler(logger *logging.Logger) *Handler {
	return &Handler{
		checkers: make(map[string]Checker),
		metadata: make(map[string]string),
		logger:   logger,
	}
}

func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) SetMetadata(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metadata[key] = value
}

// SetReady flips the readiness gate once startup wiring is complete.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	metadata := make(map[string]string, len(h.metadata))
	for k, v := range h.metadata {
		metadata[k] = v
	}
	h.mu.RUnlock()

	response := Response{
		Timestamp: time.Now(),
		Checks:    []Check{},
		Metadata:  metadata,
	}

	overall := StatusHealthy
	for name, checker := range checkers {
		check := checker.Check(ctx)
		check.Name = name
		response.Checks = append(response.Checks, check)

		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}
	response.Status = overall

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready := h.ready
	metadata := make(map[string]string, len(h.metadata))
	for k, v := range h.metadata {
		metadata[k] = v
	}
	h.mu.RUnlock()

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now(),
		"metadata":  metadata,
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// LivenessHandler always returns OK while the process is up.
func (h *Handler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"alive":     true,
		"timestamp": time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// RedisChecker probes the queue or cache connection.
type RedisChecker struct {
	addr      string
	checkFunc func() error
}

func NewRedisChecker(addr string, checkFunc func() error) *RedisChecker {
	return &RedisChecker{addr: addr, checkFunc: checkFunc}
}

func (c *RedisChecker) Check(ctx context.Context) Check {
	start := time.Now()

	if c.checkFunc == nil {
		return Check{
			Status:      StatusHealthy,
			Message:     "redis not configured",
			LastChecked: time.Now(),
			Duration:    time.Since(start) / time.Millisecond,
		}
	}

	if err := c.checkFunc(); err != nil {
		return Check{
			Status:      StatusUnhealthy,
			Message:     "redis connection failed: " + err.Error(),
			LastChecked: time.Now(),
			Duration:    time.Since(start) / time.Millisecond,
		}
	}
	return Check{
		Status:      StatusHealthy,
		Message:     "redis connection OK",
		LastChecked: time.Now(),
		Duration:    time.Since(start) / time.Millisecond,
	}
}

// QuotaChecker reports on the daily domain-metrics API budget. An
// exhausted budget degrades enrichment but does not stop collection.
type QuotaChecker struct {
	remaining func() int
	quota     int
}

func NewQuotaChecker(remaining func() int, quota int) *QuotaChecker {
	return &QuotaChecker{remaining: remaining, quota: quota}
}

func (c *QuotaChecker) Check(ctx context.Context) Check {
	start := time.Now()
	left := c.remaining()

	status := StatusHealthy
	message := "metrics quota available"
	if left == 0 {
		status = StatusDegraded
		message = "metrics quota exhausted, serving cached authority only"
	} else if c.quota > 0 && float64(left)/float64(c.quota) < 0.1 {
		status = StatusDegraded
		message = "metrics quota nearly exhausted"
	}

	return Check{
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
		Duration:    time.Since(start) / time.Millisecond,
	}
}

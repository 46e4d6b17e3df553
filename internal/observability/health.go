package observability

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the health of the service.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheckFunc checks the health of one dependency.
type HealthCheckFunc func() error

// HealthHandler responds to liveness probes. It always reports healthy
// while the process is running.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// ReadinessHandler responds to readiness probes, running the supplied
// dependency checks. Any failing check flips the response to 503.
func ReadinessHandler(checks map[string]HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "ready",
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]string),
		}

		code := http.StatusOK
		for name, check := range checks {
			if err := check(); err != nil {
				status.Checks[name] = err.Error()
				status.Status = "not_ready"
				code = http.StatusServiceUnavailable
			} else {
				status.Checks[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each component check.
const healthCheckTimeout = 5 * time.Second

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the /health response body.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
}

// HandleHealth builds the backends from a fresh configuration and reports
// the database and the object store. Any component down gives 503.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, msgBody{Msg: "Method Not Allowed"})
		return
	}

	health := s.checkHealth(r.Context())

	status := http.StatusOK
	if health.Status != HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// HandleLive provides a liveness probe (is the process running?)
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (s *Server) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  s.now().UTC(),
		Version:    s.build.Version,
		Components: make(map[string]ComponentHealth, 2),
	}

	cfg, err := s.loadConfig()
	if err == nil {
		err = cfg.MissingForUpload()
	}
	if err != nil {
		down := ComponentHealth{Status: ComponentStatusDown, Message: "configuration: " + err.Error()}
		health.Components["database"] = down
		health.Components["storage"] = down
		health.Status = HealthStatusUnhealthy
		return health
	}

	health.Components["database"] = probe(ctx, func(ctx context.Context) error {
		store, err := s.backends.Store(cfg)
		if err != nil {
			return err
		}
		return store.Ping(ctx)
	})
	health.Components["storage"] = probe(ctx, func(ctx context.Context) error {
		media, err := s.backends.Media(cfg)
		if err != nil {
			return err
		}
		return media.Check(ctx)
	})

	health.Status = HealthStatusHealthy
	for _, c := range health.Components {
		if c.Status == ComponentStatusDown {
			health.Status = HealthStatusUnhealthy
		}
	}
	return health
}

func probe(ctx context.Context, check func(context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: err.Error(), LatencyMs: latency}
	}
	return ComponentHealth{Status: ComponentStatusUp, LatencyMs: latency}
}

package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"scholarduel/src/core/ports"
)

// HealthService probes the service's critical dependencies.
type HealthService struct {
	log        *slog.Logger
	components map[string]ports.ExternalService
	timeout    time.Duration
}

// NewHealthService creates a HealthService probing each named component.
func NewHealthService(log *slog.Logger, components map[string]ports.ExternalService) *HealthService {
	return &HealthService{
		log:        log,
		components: components,
		timeout:    2 * time.Second,
	}
}

// HealthStatus represents the health of the application.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check probes every component. Any failure marks the whole service degraded.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:     "ok",
		Components: make(map[string]ComponentHealth, len(s.components)),
	}

	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.components[name].Health(probeCtx)
		cancel()

		if err != nil {
			status.Status = "degraded"
			status.Components[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			s.log.Warn("health check failed", "component", name, "error", err)
			continue
		}
		status.Components[name] = ComponentHealth{Status: "healthy"}
	}
	return status
}

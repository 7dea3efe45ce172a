package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ignite/lead-finder/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type component struct {
	pinger   Pinger
	critical bool
	slow     time.Duration
}

// HealthChecker pings the registered dependencies (query backend, cache,
// results store).
type HealthChecker struct {
	components map[string]component
	startTime  time.Time
}

// NewHealthChecker creates an empty HealthChecker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{components: make(map[string]component), startTime: time.Now()}
}

// Register adds a dependency. A critical dependency that is down makes the
// service unhealthy; anything else only degrades it. A nil pinger is
// reported as not configured.
func (hc *HealthChecker) Register(name string, p Pinger, critical bool) {
	hc.components[name] = component{pinger: p, critical: critical, slow: time.Second}
}

const healthVersion = "1.0.0"

// HandleHealth returns the health of all components. Always 200; the body
// carries the status.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status:  hc.determineOverallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness always returns 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := hc.determineOverallStatus(checks)

	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, len(hc.components))
	for name, c := range hc.components {
		go func() { ch <- result{name, checkComponent(ctx, c)} }()
	}

	checks := make(map[string]ComponentCheck, len(hc.components))
	for range hc.components {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

// checkComponent pings with a 3-second timeout.
func checkComponent(ctx context.Context, c component) ComponentCheck {
	if c.pinger == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := c.pinger.Ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	status := "up"
	msg := "connected"
	if latency > c.slow {
		status = "degraded"
		msg = fmt.Sprintf("slow response (%s)", latency)
	}
	return ComponentCheck{Status: status, Latency: latency.String(), Message: msg}
}

// determineOverallStatus derives the aggregate status from individual checks.
//
// Rules:
//   - "unhealthy" if a configured critical component is down
//   - "degraded"  if any check is degraded or a non-critical check is down
//   - "healthy"   otherwise
func (hc *HealthChecker) determineOverallStatus(checks map[string]ComponentCheck) string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := "healthy"
	for _, name := range names {
		c := checks[name]
		configured := c.Message != "not configured"
		if c.Status == "down" && configured && hc.components[name].critical {
			return "unhealthy"
		}
		if c.Status == "degraded" || (c.Status == "down" && configured) {
			overall = "degraded"
		}
	}
	return overall
}

// formatUptime produces a human-readable uptime string like "3d 4h 12m 5s".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

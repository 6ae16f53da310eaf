package nlsearch

import (
	"context"
	"net/http"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}

// Health checks the health of all system components. A degraded or
// unhealthy system surfaces as an *APIError with status 503.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

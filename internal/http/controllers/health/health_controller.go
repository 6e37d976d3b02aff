// Package health contiene los endpoints de liveness y readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/cache"
	"github.com/dropDatabas3/cogmesh/internal/http/helpers"
	"github.com/dropDatabas3/cogmesh/internal/store/core"
)

// Controller maneja los endpoints de health.
type Controller struct {
	repo  core.Repository
	cache cache.Client
}

// NewController crea el controller de health.
func NewController(repo core.Repository, c cache.Client) *Controller {
	return &Controller{repo: repo, cache: c}
}

// Live maneja GET /healthz: el proceso responde.
func (c *Controller) Live(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready maneja GET /readyz: dependencias alcanzables.
func (c *Controller) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK

	if err := c.repo.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["cache"] = "ok"
		}
	}

	helpers.WriteJSON(w, status, map[string]any{"checks": checks})
}

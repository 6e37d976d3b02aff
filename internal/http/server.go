// Package http arma el servidor del API: middlewares globales, métricas
// y ciclo de vida (arranque + shutdown graceful).
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/cogmesh/internal/http/middlewares"
)

// ServerConfig controla los timeouts del listener.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer envuelve el handler con la cadena global de middlewares y
// devuelve el *http.Server listo para arrancar.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	wrapped := middlewares.Chain(handler,
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		WithMetrics(),
		middlewares.WithRecover(),
	)
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      wrapped,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Shutdown corta el listener con gracia dentro del plazo dado.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

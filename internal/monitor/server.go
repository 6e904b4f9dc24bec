package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// HealthSource reports the live health inputs the endpoint serves.
type HealthSource interface {
	Health() Health
}

// Health is the JSON document served on /healthz.
type Health struct {
	Status              string    `json:"status"` // "ok" or "degraded"
	Halted              bool      `json:"halted"`
	HasPosition         bool      `json:"has_position"`
	BufferedBars        int       `json:"buffered_bars"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// Server serves /metrics and /healthz.
type Server struct {
	httpServer *http.Server
	logger     ports.Logger
}

// NewServer builds the monitoring server on addr.
func NewServer(addr string, reg *prometheus.Registry, source HealthSource, logger ports.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := source.Health()
		w.Header().Set("Content-Type", "application/json")
		if health.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Monitoring server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

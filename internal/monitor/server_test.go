package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

type staticHealth struct{ health Health }

func (s staticHealth) Health() Health { return s.health }

func TestServer_Healthz(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	server := NewServer(":0", reg, staticHealth{Health{
		Status:       "ok",
		HasPosition:  true,
		BufferedBars: 1500,
		LastSuccess:  time.Date(2026, 2, 10, 14, 15, 2, 0, time.UTC),
	}}, ports.NopLogger{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.HasPosition)
	assert.Equal(t, 1500, health.BufferedBars)
}

func TestServer_HealthzDegraded(t *testing.T) {
	reg := prometheus.NewRegistry()
	server := NewServer(":0", reg, staticHealth{Health{
		Status:              "degraded",
		Halted:              true,
		ConsecutiveFailures: 7,
		LastError:           "exchange API is unavailable",
	}}, ports.NopLogger{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_MetricsExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.CyclesTotal.WithLabelValues("ok").Inc()
	m.ExitsTotal.WithLabelValues(string(domain.ExitReasonTarget)).Inc()
	m.ObserveView(domain.MarketView{RSI: 47.5, RSIReady: true, ATR: 120.2, ATRReady: true}, 960)
	m.ObserveDecision(domain.Decision{Action: domain.ActionEnter, Kind: domain.KindShort}, true)

	server := NewServer(":0", reg, staticHealth{Health{Status: "ok"}}, ports.NopLogger{})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		`bot_cycles_total{result="ok"} 1`,
		`bot_exits_total{reason="target"} 1`,
		`bot_decisions_total{action="enter"} 1`,
		`bot_rsi 47.5`,
		`bot_buffered_bars 960`,
		`bot_open_position 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics exposition missing %q", want)
		}
	}
}

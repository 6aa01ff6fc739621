// Package metrics holds the Prometheus collectors shared by the gateway, the
// board engine and the live channel.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Moves           prometheus.Counter
	Rollbacks       prometheus.Counter
	Loads           *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	Reconnects      prometheus.Counter
	BuildInfo       *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests and library callers usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dome_api_requests_total",
			Help: "Requests sent to the remote API.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dome_api_request_duration_seconds",
			Help:    "Remote API latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		Moves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dome_card_moves_total",
			Help: "Card moves applied to the local layout.",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dome_card_move_rollbacks_total",
			Help: "Optimistic moves reverted after a failed save.",
		}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dome_board_loads_total",
			Help: "Board loads by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dome_live_notifications_total",
			Help: "Live notifications received by kind.",
		}, []string{"kind"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dome_live_reconnects_total",
			Help: "Live channel reconnect attempts.",
		}),
		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dome_build_info",
			Help: "Always 1, labelled with the client version and commit.",
		}, []string{"version", "commit"}),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestDuration, m.Moves, m.Rollbacks,
			m.Loads, m.Notifications, m.Reconnects, m.BuildInfo)
	}
	return m
}

// SetBuildInfo publishes the running version.
func (m *Metrics) SetBuildInfo(version, commit string) {
	m.BuildInfo.WithLabelValues(version, commit).Set(1)
}

// ObserveRequest records one finished API call. status is the HTTP status
// code, or 0 when the request never got a response.
func (m *Metrics) ObserveRequest(method string, status int, started time.Time) {
	m.Requests.WithLabelValues(method, StatusClass(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// StatusClass collapses a status code into "2xx".."5xx", or "error".
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "error"
	}
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve runs a /metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

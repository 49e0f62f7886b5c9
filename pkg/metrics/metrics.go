package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "github.com/nakari-agent/server/pkg/logger"
)

const namespace = "nakari"

// Metrics records reasoning loop activity on its own registry.
type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	runSeconds prometheus.Histogram
	modelCalls *prometheus.CounterVec
	toolCalls  *prometheus.CounterVec
	ceilings   prometheus.Counter
	costUSD    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_runs_total",
			Help:      "Reasoning loop runs by outcome.",
		}, []string{"outcome"}),
		runSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_run_duration_seconds",
			Help:      "Wall time of a reasoning loop run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Reasoning model calls by outcome.",
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Action executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ceilings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iteration_ceiling_hits_total",
			Help:      "Runs that reached the iteration ceiling and were forced to answer.",
		}),
		costUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cost_usd_total",
			Help:      "Estimated model spend in USD.",
		}),
	}
	m.registry.MustRegister(m.runs, m.runSeconds, m.modelCalls, m.toolCalls, m.ceilings, m.costUSD,
		collectors.NewGoCollector())
	return m
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	m.runs.WithLabelValues(outcome).Inc()
	m.runSeconds.Observe(d.Seconds())
}

func (m *Metrics) IncModelCall(outcome string) {
	m.modelCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncToolCall(tool, outcome string) {
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) IncCeilingHit() {
	m.ceilings.Inc()
}

func (m *Metrics) AddCost(usd float64) {
	if usd > 0 {
		m.costUSD.Add(usd)
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		logx.Info().Str("addr", addr).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Str("addr", addr).Msg("metrics server error")
		}
	}()
}

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "vysync"

// Metrics holds the collectors of one process, registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	// PipelineRuns counts pipeline runs by entity type and outcome
	PipelineRuns *prometheus.CounterVec
	// PipelineDuration tracks pipeline duration in seconds
	PipelineDuration *prometheus.HistogramVec
	// PlannedActions counts planned actions by entity type and action
	PlannedActions *prometheus.CounterVec
	// LastSuccess is the unix time of the last successful pipeline run
	LastSuccess *prometheus.GaugeVec
	// ClientRequests counts outbound VCOM and Yuman requests
	ClientRequests *prometheus.CounterVec
	// ClientRequestDuration tracks outbound request duration in seconds
	ClientRequestDuration *prometheus.HistogramVec
	// APIRequests counts requests served by the HTTP API
	APIRequests *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by entity type and outcome",
			},
			[]string{"entity_type", "outcome"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"entity_type"},
		),
		PlannedActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "actions_total",
				Help:      "Total number of planned actions by entity type and action",
			},
			[]string{"entity_type", "action"},
		),
		LastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful pipeline run",
			},
			[]string{"entity_type"},
		),
		ClientRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http_client",
				Name:      "requests_total",
				Help:      "Total number of outbound HTTP requests",
			},
			[]string{"client", "method", "status_code"},
		),
		ClientRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http_client",
				Name:      "request_duration_seconds",
				Help:      "Duration of outbound HTTP requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"client"},
		),
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of HTTP API requests",
			},
			[]string{"method", "route", "status_code"},
		),
	}
}

// ObservePipeline records one pipeline report. It implements reconcile.Observer.
func (m *Metrics) ObservePipeline(r reconcile.PipelineReport) {
	t := string(r.EntityType)
	m.PipelineRuns.WithLabelValues(t, Outcome(r.Err)).Inc()
	m.PipelineDuration.WithLabelValues(t).Observe(r.Duration.Seconds())

	m.PlannedActions.WithLabelValues(t, string(reconcile.ActionAdd)).Add(float64(r.Added))
	m.PlannedActions.WithLabelValues(t, string(reconcile.ActionUpdate)).Add(float64(r.Updated))
	m.PlannedActions.WithLabelValues(t, string(reconcile.ActionObsolete)).Add(float64(r.Obsoleted))
	m.PlannedActions.WithLabelValues(t, string(reconcile.ActionConflict)).Add(float64(r.Conflicted))

	if r.Err == nil {
		m.LastSuccess.WithLabelValues(t).SetToCurrentTime()
	}
}

// ObserveRequest records one outbound API call. Status 0 means the request never got a response.
func (m *Metrics) ObserveRequest(client, method string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.ClientRequests.WithLabelValues(client, method, code).Inc()
	m.ClientRequestDuration.WithLabelValues(client).Observe(d.Seconds())
}

// Outcome classifies a pipeline error into a metric label.
func Outcome(err error) string {
	var (
		fe *reconcile.FetchError
		ae *reconcile.AmbiguousKeyError
		pe *reconcile.PersistenceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fe):
		return "fetch_error"
	case errors.As(err, &ae):
		return "ambiguous_key"
	case errors.As(err, &pe):
		return "persistence_error"
	default:
		return "error"
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware counts API requests by route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		m.APIRequests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}

// Push sends the registry to the pushgateway under the configured job, replacing
// the previous push of the same grouping. It is a no-op without a pushgateway URL.
func (m *Metrics) Push(ctx context.Context, cfg Config, grouping map[string]string) error {
	if cfg.PushgatewayURL == "" {
		return nil
	}
	job := cfg.Job
	if job == "" {
		job = namespace
	}

	p := push.New(cfg.PushgatewayURL, job).Gatherer(m.Registry)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", cfg.PushgatewayURL, err)
	}
	return nil
}

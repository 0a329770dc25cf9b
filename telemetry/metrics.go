package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recalculation results
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Registry owns the application's Prometheus collectors. Its Observe
// methods are safe on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	Recalculations     *prometheus.CounterVec
	ChurnTasksCreated  prometheus.Counter
	ChurnTasksSkipped  prometheus.Counter
	ChurnTasksFailed   prometheus.Counter
	ChurnThresholdDays prometheus.Gauge
	ChurnRunSec        prometheus.Histogram
	MenuCacheHits      *prometheus.CounterVec
	HTTPRequestSec     *prometheus.HistogramVec
}

// NewRegistry creates a Registry with every collector registered
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	recalcs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_metrics_recalculations_total",
		Help: "Customer metrics recalculations by result.",
	}, []string{"result"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_churn_tasks_created_total",
		Help: "Follow-up tasks created by the churn alert job.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_churn_tasks_skipped_total",
		Help: "Churn candidates skipped because an open churn task already exists.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_churn_tasks_failed_total",
		Help: "Churn candidates whose follow-up task could not be created.",
	})
	threshold := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crm_churn_threshold_days",
		Help: "Recency threshold in days used by the last churn alert run.",
	})
	runSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_churn_run_seconds",
		Help:    "Duration of churn alert runs.",
		Buckets: prometheus.DefBuckets,
	})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_menu_cache_lookups_total",
		Help: "Menu cache lookups by outcome.",
	}, []string{"outcome"})
	httpSec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_http_request_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	r.MustRegister(recalcs, created, skipped, failed, threshold, runSec, cache, httpSec)
	return &Registry{
		reg:                r,
		Recalculations:     recalcs,
		ChurnTasksCreated:  created,
		ChurnTasksSkipped:  skipped,
		ChurnTasksFailed:   failed,
		ChurnThresholdDays: threshold,
		ChurnRunSec:        runSec,
		MenuCacheHits:      cache,
		HTTPRequestSec:     httpSec,
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ObserveRecalculation counts one recalculation outcome. Safe on a nil registry.
func (r *Registry) ObserveRecalculation(result string) {
	if r == nil {
		return
	}
	r.Recalculations.WithLabelValues(result).Inc()
}

// ObserveCacheLookup counts a menu cache hit or miss. Safe on a nil registry.
func (r *Registry) ObserveCacheLookup(hit bool) {
	if r == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.MenuCacheHits.WithLabelValues(outcome).Inc()
}

// Middleware records request latency per matched route
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.HTTPRequestSec.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

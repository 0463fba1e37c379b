package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResponsesScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audits", Name: "responses_scored_total", Help: "Saved audit responses by question type and outcome",
	}, []string{"type", "outcome"})
	AuditsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audits", Name: "completed_total", Help: "Completed audits by result",
	}, []string{"result"})
	CriticalOverrides = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audits", Name: "critical_overrides_total", Help: "Audits failed by a critical failure despite a passing percentage",
	})
	OperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audits", Name: "operation_errors_total", Help: "Operation failures by operation",
	}, []string{"op"})
	AuditsByStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "audits", Name: "by_status", Help: "Audits per status",
	}, []string{"status"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audits", Name: "http_requests_total", Help: "HTTP API requests",
	}, []string{"route", "code"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "audits", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})

	// Фоновые задачи jobs.Runner, метка job.
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audits", Subsystem: "job", Name: "runs_total", Help: "Background job runs",
	}, []string{"job"})
	JobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audits", Subsystem: "job", Name: "errors_total", Help: "Background job errors and panics",
	}, []string{"job"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audits", Subsystem: "job", Name: "duration_seconds", Help: "Background job duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(ResponsesScored, AuditsCompleted, CriticalOverrides,
		OperationErrors, AuditsByStatus, HTTPRequests, DBPing,
		JobRuns, JobErrors, JobDuration)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// Outcome метка для ResponsesScored по tri-state passed.
func Outcome(passed *bool) string {
	switch {
	case passed == nil:
		return "ungraded"
	case *passed:
		return "passed"
	default:
		return "failed"
	}
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Source metrics
	SourceFetchesTotal *prometheus.CounterVec
	SourceFetchLatency *prometheus.HistogramVec
	SourceBlockedTotal *prometheus.CounterVec
	SourceRetriesTotal *prometheus.CounterVec

	// Stage metrics
	StageRecordsTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec

	// Publisher metrics
	PoliticiansCreated   prometheus.Counter
	PoliticiansMatched   prometheus.Counter
	DisclosuresPublished *prometheus.CounterVec

	// Artifact metrics
	ArtifactsStored    *prometheus.CounterVec
	ArtifactDedupHits  prometheus.Counter
	ArtifactBytesTotal *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Scheduler metrics
	JobsRunning         prometheus.Gauge
	JobExecutionsTotal  *prometheus.CounterVec
	MissedJobsRecovered prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "disclosure_lab"
	}

	return &Metrics{
		SourceFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of source fetch requests by source and outcome",
		}, []string{"source", "outcome"}),
		SourceFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_latency_seconds",
			Help:      "Source HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		SourceBlockedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "blocked_total",
			Help:      "Total number of WAF-blocked responses by source",
		}, []string{"source"}),
		SourceRetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "retries_total",
			Help:      "Total number of HTTP retries by source",
		}, []string{"source"}),

		StageRecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_records_total",
			Help:      "Records counted per stage by disposition (output, skipped, failed)",
		}, []string{"stage", "disposition"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),

		PoliticiansCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "politicians_created_total",
			Help:      "Total number of politicians created by the publisher",
		}),
		PoliticiansMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "politicians_matched_total",
			Help:      "Total number of politicians matched to existing rows",
		}),
		DisclosuresPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "disclosures_total",
			Help:      "Total number of disclosures by publish action (inserted, updated, skipped, failed)",
		}, []string{"action"}),

		ArtifactsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "stored_total",
			Help:      "Total number of artifacts stored by bucket",
		}, []string{"bucket"}),
		ArtifactDedupHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "dedup_hits_total",
			Help:      "Total number of uploads short-circuited by content-hash dedup",
		}),
		ArtifactBytesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "bytes_total",
			Help:      "Total bytes uploaded by bucket",
		}, []string{"bucket"}),

		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by source and status",
		}, []string{"source", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"source"}),

		JobsRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_running",
			Help:      "Number of job executions currently running",
		}),
		JobExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_executions_total",
			Help:      "Total number of job executions by job and status",
		}, []string{"job_id", "status"}),
		MissedJobsRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "missed_jobs_recovered_total",
			Help:      "Total number of jobs executed by startup missed-job recovery",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStage counts the stage dispositions from one stage result.
func RecordStage(stage string, output, skipped, failed int, seconds float64) {
	DefaultMetrics.StageRecordsTotal.WithLabelValues(stage, "output").Add(float64(output))
	DefaultMetrics.StageRecordsTotal.WithLabelValues(stage, "skipped").Add(float64(skipped))
	DefaultMetrics.StageRecordsTotal.WithLabelValues(stage, "failed").Add(float64(failed))
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordBlocked increments the WAF-blocked counter for a source.
func RecordBlocked(source string) {
	DefaultMetrics.SourceBlockedTotal.WithLabelValues(source).Inc()
}

// RecordPublishAction increments the publish action counter.
func RecordPublishAction(action string) {
	DefaultMetrics.DisclosuresPublished.WithLabelValues(action).Inc()
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	submissionsJudged      *prometheus.CounterVec
	verdictEventsPublished *prometheus.CounterVec
	contestsFinalized      prometheus.Counter
	schedulerRuns          *prometheus.CounterVec
	schedulerSkips         *prometheus.CounterVec
	schedulerDuration      *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionsJudged = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_submissions_judged_total",
			Help: "Number of submissions judged, labelled by final verdict.",
		}, []string{"verdict"})

		verdictEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_verdict_events_published_total",
			Help: "Number of verdict events fanned out to live subscribers.",
		}, []string{"verdict"})

		contestsFinalized = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_contests_finalized_total",
			Help: "Number of contests settled by the finalizer.",
		})

		schedulerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_scheduler_runs_total",
			Help: "Number of scheduled job runs, labelled by outcome.",
		}, []string{"job", "outcome"})

		schedulerSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_scheduler_skips_total",
			Help: "Number of scheduler ticks skipped because a run was in flight.",
		}, []string{"job"})

		schedulerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_scheduler_run_duration_seconds",
			Help:    "Duration distribution for scheduled job runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionsJudged,
			verdictEventsPublished,
			contestsFinalized,
			schedulerRuns,
			schedulerSkips,
			schedulerDuration,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// SubmissionsJudged exposes the judged-submission counter.
func SubmissionsJudged() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsJudged
}

// VerdictEventsPublished exposes the verdict fan-out counter.
func VerdictEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return verdictEventsPublished
}

// ContestsFinalized exposes the finalized-contest counter.
func ContestsFinalized() prometheus.Counter {
	RegisterMetrics()
	return contestsFinalized
}

// SchedulerRuns exposes the scheduled-run counter.
func SchedulerRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return schedulerRuns
}

// SchedulerSkips exposes the skipped-tick counter.
func SchedulerSkips() *prometheus.CounterVec {
	RegisterMetrics()
	return schedulerSkips
}

// SchedulerDuration exposes the run-duration histogram.
func SchedulerDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return schedulerDuration
}

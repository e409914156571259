// Package metrics exposes the attendance hub's Prometheus collectors. Ledger
// counters are fed from the event bus; HTTP and job metrics are observed
// directly by the router middleware and the scheduler hook.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

const namespace = "attendance_hub"

// Collectors owns a registry and every metric registered on it.
type Collectors struct {
	registry *prometheus.Registry

	Marks            *prometheus.CounterVec
	Checkouts        *prometheus.CounterVec
	DuplicatesMerged prometheus.Counter
	DuplicatesPurged prometheus.Counter
	AutoCheckouts    prometheus.Counter
	ClassesStarted   prometheus.Counter
	HTTPDuration     *prometheus.HistogramVec
	JobRuns          *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry. withRuntime adds the Go
// and process collectors.
func New(withRuntime bool) *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		Marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "Attendance marks written to the ledger.",
		}, []string{"role", "status", "explicit"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_checkouts_total",
			Help:      "Checkouts recorded, manual or by the end-of-day sweep.",
		}, []string{"role", "automatic"}),
		DuplicatesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_duplicate_groups_merged_total",
			Help:      "Duplicate record groups merged by the cleanup job.",
		}),
		DuplicatesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_duplicate_records_deleted_total",
			Help:      "Duplicate records deleted by the cleanup job.",
		}),
		AutoCheckouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_auto_checkouts_total",
			Help:      "Records closed by the end-of-day sweep.",
		}),
		ClassesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_classes_started_total",
			Help:      "Schedule slots moved to in_progress.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job executions by outcome.",
		}, []string{"job", "result"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job duration.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
	}

	c.registry.MustRegister(
		c.Marks, c.Checkouts, c.DuplicatesMerged, c.DuplicatesPurged,
		c.AutoCheckouts, c.ClassesStarted, c.HTTPDuration, c.JobRuns, c.JobDuration,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return c
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Subscribe feeds the ledger counters from bus.
func (c *Collectors) Subscribe(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(c.OnEvent)
}

// OnEvent updates counters for one ledger event.
func (c *Collectors) OnEvent(event shared.Event) error {
	switch e := event.(type) {
	case shared.AttendanceMarkedEvent:
		c.Marks.WithLabelValues(e.Role.String(), e.Status, strconv.FormatBool(e.Explicit)).Inc()
	case shared.AttendanceCheckedOutEvent:
		c.Checkouts.WithLabelValues(e.Role.String(), strconv.FormatBool(e.Automatic)).Inc()
	case shared.DuplicatesMergedEvent:
		c.DuplicatesMerged.Add(float64(e.GroupsMerged))
		c.DuplicatesPurged.Add(float64(e.RecordsDeleted))
	case shared.AutoCheckoutSweptEvent:
		c.AutoCheckouts.Add(float64(e.Count))
	case shared.ClassStartedEvent:
		c.ClassesStarted.Inc()
	}
	return nil
}

// ObserveHTTP records one request.
func (c *Collectors) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveJob records one job run.
func (c *Collectors) ObserveJob(name string, success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.JobRuns.WithLabelValues(name, result).Inc()
	c.JobDuration.WithLabelValues(name).Observe(d.Seconds())
}

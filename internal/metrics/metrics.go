// Package metrics exposes Prometheus counters for phonebook operations.
// The CLI is short-lived, so metrics are exported by writing a textfile for
// the node_exporter textfile collector rather than by serving HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "phonebook"

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ownersCreated   prometheus.Counter
	ownersDeleted   prometheus.Counter
	contactOps      *prometheus.CounterVec
	duplicateLogins prometheus.Counter
	storageErrors   *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ownersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "owners_created_total",
			Help:      "Owner accounts created.",
		}),
		ownersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "owners_deleted_total",
			Help:      "Owner accounts deleted.",
		}),
		contactOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_operations_total",
			Help:      "Successful contact mutations by operation.",
		}, []string{"op"}),
		duplicateLogins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_login_rejections_total",
			Help:      "Owner creations or renames rejected because the login name was taken.",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Persistence failures by operation.",
		}, []string{"op"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of facade operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		m.ownersCreated,
		m.ownersDeleted,
		m.contactOps,
		m.duplicateLogins,
		m.storageErrors,
		m.opDuration,
	)
	return m
}

// Registry returns the registry holding every phonebook collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// OwnerCreated counts a new owner.
func (m *Metrics) OwnerCreated() {
	if m == nil {
		return
	}
	m.ownersCreated.Inc()
}

// OwnerDeleted counts a removed owner.
func (m *Metrics) OwnerDeleted() {
	if m == nil {
		return
	}
	m.ownersDeleted.Inc()
}

// ContactOp counts a successful contact mutation such as "add" or "delete".
func (m *Metrics) ContactOp(op string) {
	if m == nil {
		return
	}
	m.contactOps.WithLabelValues(op).Inc()
}

// DuplicateLogin counts a login name rejected as taken.
func (m *Metrics) DuplicateLogin() {
	if m == nil {
		return
	}
	m.duplicateLogins.Inc()
}

// StorageError counts a persistence failure.
func (m *Metrics) StorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

// ObserveDuration records how long an operation took, starting at start.
// Intended for use as: defer m.ObserveDuration("op", time.Now()).
func (m *Metrics) ObserveDuration(op string, start time.Time) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes every collector to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

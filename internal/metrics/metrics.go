package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlas-finance/wisebook/internal/model"
)

// ImportMetrics records import pipeline activity. A nil *ImportMetrics is a no-op.
type ImportMetrics struct {
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
	issues   *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	importMetricsOnce sync.Once
	importMetrics     *ImportMetrics
)

// Import returns the process-wide metrics registered on the default registerer.
func Import() *ImportMetrics {
	importMetricsOnce.Do(func() {
		importMetrics = New(prometheus.DefaultRegisterer)
	})
	return importMetrics
}

// New creates and registers import metrics on registerer.
func New(registerer prometheus.Registerer) *ImportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisebook_import_runs_total",
			Help: "Import runs by final status.",
		},
		[]string{"status"}, // completed | partial | failed
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisebook_import_rows_total",
			Help: "Imported rows by outcome.",
		},
		[]string{"result"}, // accepted | rejected
	)
	issues := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisebook_import_issues_total",
			Help: "Validation issues raised during imports.",
		},
		[]string{"severity", "kind"},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisebook_import_batches_total",
			Help: "Journal batches by outcome.",
		},
		[]string{"result"}, // committed | rejected | auto_balanced
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wisebook_import_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"stage"},
	)

	registerer.MustRegister(runs, rows, issues, batches, duration)

	return &ImportMetrics{
		runs:     runs,
		rows:     rows,
		issues:   issues,
		batches:  batches,
		duration: duration,
	}
}

// ObserveStage records how long a stage took.
func (m *ImportMetrics) ObserveStage(stage model.Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// IncBatch counts a batch outcome.
func (m *ImportMetrics) IncBatch(result string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(result).Inc()
}

// RecordReport counts the run, its rows and its issues.
func (m *ImportMetrics) RecordReport(r *model.Report) {
	if m == nil || r == nil {
		return
	}
	m.runs.WithLabelValues(string(r.Status)).Inc()
	m.rows.WithLabelValues("accepted").Add(float64(r.Accepted))
	m.rows.WithLabelValues("rejected").Add(float64(r.Rejected))
	for _, is := range r.Issues {
		m.issues.WithLabelValues(string(is.Severity), string(is.Kind)).Inc()
	}
}

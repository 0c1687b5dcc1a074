package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/atlas-finance/wisebook/internal/model"
)

func TestRecordReport(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordReport(&model.Report{
		Status:   model.StatusCompleted,
		Accepted: 4,
		Rejected: 2,
		Issues: []model.Issue{
			model.RowError(2, model.KindMissingField, "x"),
			model.RowWarning(3, model.KindDuplicate, "y"),
			model.RowWarning(4, model.KindDuplicate, "z"),
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rows.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rows.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.issues.WithLabelValues("warning", "duplicate")))
}

func TestBatchesAndStages(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncBatch("committed")
	m.IncBatch("committed")
	m.ObserveStage(model.StageParsing, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.batches.WithLabelValues("committed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNilIsNoop(t *testing.T) {
	var m *ImportMetrics
	assert.NotPanics(t, func() {
		m.IncBatch("committed")
		m.ObserveStage(model.StageDone, time.Second)
		m.RecordReport(&model.Report{})
	})
}

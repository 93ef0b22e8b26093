package components

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the parse and index phases do. A nil *Metrics is
// valid and counts nothing.
type Metrics struct {
	LinesRead         prometheus.Counter
	LinesSkipped      prometheus.Counter
	StatementsIgnored prometheus.Counter
	RecordsFlushed    prometheus.Counter
	DuplicateFlushes  prometheus.Counter
	SinkBackpressure  prometheus.Counter
	BulkRequests      *prometheus.CounterVec
	BulkFailures      prometheus.Counter
	DocumentsIndexed  prometheus.Counter
}

// NewMetrics creates the counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "parse", Name: "lines_read_total",
			Help: "Lines read from the dump.",
		}),
		LinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "parse", Name: "lines_skipped_total",
			Help: "Lines dropped because they did not match the statement grammar.",
		}),
		StatementsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "parse", Name: "statements_ignored_total",
			Help: "Well formed statements with an unrecognized predicate or filtered language.",
		}),
		RecordsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "parse", Name: "records_flushed_total",
			Help: "Entity records evicted from the aggregator.",
		}),
		DuplicateFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "parse", Name: "duplicate_flushes_total",
			Help: "Entity ids flushed more than once.",
		}),
		SinkBackpressure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "parse", Name: "sink_backpressure_total",
			Help: "Evictions that had to wait for the record writer.",
		}),
		BulkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "index", Name: "bulk_requests_total",
			Help: "Bulk requests sent, by refresh mode.",
		}, []string{"refresh"}),
		BulkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "index", Name: "bulk_item_failures_total",
			Help: "Bulk items reported as failed.",
		}),
		DocumentsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fbindex", Subsystem: "index", Name: "documents_indexed_total",
			Help: "Documents accepted by the search engine.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.LinesRead, m.LinesSkipped, m.StatementsIgnored, m.RecordsFlushed,
		m.DuplicateFlushes, m.SinkBackpressure, m.BulkRequests, m.BulkFailures,
		m.DocumentsIndexed,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}
	return m, nil
}

func (m *Metrics) lineRead() {
	if m != nil {
		m.LinesRead.Inc()
	}
}

func (m *Metrics) lineSkipped() {
	if m != nil {
		m.LinesSkipped.Inc()
	}
}

func (m *Metrics) statementIgnored() {
	if m != nil {
		m.StatementsIgnored.Inc()
	}
}

func (m *Metrics) recordFlushed() {
	if m != nil {
		m.RecordsFlushed.Inc()
	}
}

func (m *Metrics) duplicateFlush() {
	if m != nil {
		m.DuplicateFlushes.Inc()
	}
}

func (m *Metrics) backpressure() {
	if m != nil {
		m.SinkBackpressure.Inc()
	}
}

func (m *Metrics) bulkRequest(refresh bool) {
	if m == nil {
		return
	}
	mode := "false"
	if refresh {
		mode = "true"
	}
	m.BulkRequests.WithLabelValues(mode).Inc()
}

func (m *Metrics) bulkResult(ok, failed int) {
	if m != nil {
		m.DocumentsIndexed.Add(float64(ok))
		m.BulkFailures.Add(float64(failed))
	}
}

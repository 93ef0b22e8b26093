package components

import (
	"github.com/cockroachdb/errors"
	"github.com/flowbase/flowbase"
	"github.com/hashicorp/golang-lru/simplelru"
)

// DefaultCapacity is the number of entity records kept resident by default.
const DefaultCapacity = 100

// RecordAggregator coalesces statements into entity records, keeping at most
// Capacity records resident. Records that fall out of the recency window are
// handed back to the caller, who owns them from then on.
//
// An id that shows up again after its record was flushed starts a new record.
// Such repeated flushes are counted and logged, not prevented.
type RecordAggregator struct {
	capacity        int
	lru             *simplelru.LRU
	trackDuplicates bool
	flushed         map[string]struct{}
	duplicates      int
	metrics         *Metrics
}

type AggregatorOption func(*RecordAggregator)

// WithDuplicateTracking turns the lifetime set of flushed ids on or off.
func WithDuplicateTracking(enabled bool) AggregatorOption {
	return func(a *RecordAggregator) {
		a.trackDuplicates = enabled
	}
}

func WithAggregatorMetrics(m *Metrics) AggregatorOption {
	return func(a *RecordAggregator) {
		a.metrics = m
	}
}

func NewRecordAggregator(capacity int, opts ...AggregatorOption) (*RecordAggregator, error) {
	if capacity < 1 {
		return nil, errors.Newf("aggregator capacity must be positive, got %d", capacity)
	}
	lru, err := simplelru.NewLRU(capacity, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create recency store")
	}
	a := &RecordAggregator{
		capacity:        capacity,
		lru:             lru,
		trackDuplicates: true,
		flushed:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// GetOrCreate returns the resident record for id, creating an empty one if
// needed, and marks it as most recently used. When creating the record
// pushes the store over capacity, the least recently used record is removed
// and returned as evicted.
func (a *RecordAggregator) GetOrCreate(id string) (rec *EntityRecord, evicted *EntityRecord) {
	if v, ok := a.lru.Get(id); ok {
		return v.(*EntityRecord), nil
	}
	if a.lru.Len() >= a.capacity {
		evicted = a.evictOldest()
	}
	rec = NewEntityRecord(id)
	a.lru.Add(id, rec)
	return rec, evicted
}

// Observe applies st to the record of its subject. Statements with an
// unrecognized predicate, or with an object of the wrong kind for their
// predicate, leave the store untouched. The returned record, if any, was
// evicted to make room and must be forwarded by the caller.
func (a *RecordAggregator) Observe(st Statement) (evicted *EntityRecord) {
	var rec *EntityRecord
	switch st.Predicate {
	case PredicateAlias:
		if !st.HasLiteral() {
			break
		}
		rec, evicted = a.GetOrCreate(st.SubjectID)
		rec.AddAlias(st.LiteralLang, st.LiteralValue)
	case PredicateName:
		if !st.HasLiteral() {
			break
		}
		rec, evicted = a.GetOrCreate(st.SubjectID)
		rec.SetTitle(st.LiteralLang, st.LiteralValue)
	case PredicateType:
		if st.HasLiteral() {
			break
		}
		rec, evicted = a.GetOrCreate(st.SubjectID)
		rec.AddType(st.ObjectTypeSuffix)
	}
	if rec == nil {
		a.metrics.statementIgnored()
	}
	return evicted
}

// DrainAll evicts every resident record, least recently used first.
func (a *RecordAggregator) DrainAll() []*EntityRecord {
	out := make([]*EntityRecord, 0, a.lru.Len())
	for a.lru.Len() > 0 {
		out = append(out, a.evictOldest())
	}
	return out
}

// Len returns the number of resident records.
func (a *RecordAggregator) Len() int {
	return a.lru.Len()
}

// Duplicates returns how many flushes were for an id already flushed before.
func (a *RecordAggregator) Duplicates() int {
	return a.duplicates
}

func (a *RecordAggregator) evictOldest() *EntityRecord {
	_, v, ok := a.lru.RemoveOldest()
	if !ok {
		return nil
	}
	rec := v.(*EntityRecord)
	a.metrics.recordFlushed()
	if a.trackDuplicates {
		if _, seen := a.flushed[rec.MID]; seen {
			a.duplicates++
			a.metrics.duplicateFlush()
			flowbase.Warning.Printf("Entity %s flushed more than once\n", rec.MID)
		} else {
			a.flushed[rec.MID] = struct{}{}
		}
	}
	return rec
}

// --------------------------------------------------------------------------------
// AggregateRecordsPerSubject
// --------------------------------------------------------------------------------

// AggregateRecordsPerSubject is a process that feeds the statements it
// receives on In into a RecordAggregator and sends every evicted record on
// Out. Out is bounded, so a slow consumer stalls the process, and with it
// everything upstream, instead of letting evicted records pile up.
type AggregateRecordsPerSubject struct {
	In         chan Statement
	Out        chan *EntityRecord
	aggregator *RecordAggregator
	metrics    *Metrics
	sink       *RecordFileWriter
}

func NewAggregateRecordsPerSubject(aggregator *RecordAggregator, queueSize int, metrics *Metrics) *AggregateRecordsPerSubject {
	if queueSize < 1 {
		queueSize = BUFSIZE
	}
	return &AggregateRecordsPerSubject{
		In:         make(chan Statement, BUFSIZE),
		Out:        make(chan *EntityRecord, queueSize),
		aggregator: aggregator,
		metrics:    metrics,
	}
}

// Run runs the AggregateRecordsPerSubject process.
func (p *AggregateRecordsPerSubject) Run() {
	defer close(p.Out)
	for st := range p.In {
		if evicted := p.aggregator.Observe(st); evicted != nil {
			p.emit(evicted)
		}
	}
	drained := p.aggregator.DrainAll()
	flowbase.Debug.Printf("Draining %d resident records\n", len(drained))
	for _, rec := range drained {
		p.emit(rec)
	}
}

// SendTo connects Out to the In port of w. Evicted records are then offered
// to w, and only sent blocking when w refuses them.
func (p *AggregateRecordsPerSubject) SendTo(w *RecordFileWriter) {
	w.In = p.Out
	p.sink = w
}

func (p *AggregateRecordsPerSubject) emit(rec *EntityRecord) {
	var accepted bool
	if p.sink != nil {
		accepted = p.sink.Offer(rec)
	} else {
		accepted = offer(p.Out, rec)
	}
	if !accepted {
		p.metrics.backpressure()
		p.Out <- rec
	}
}

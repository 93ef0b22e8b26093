package components

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/flowbase/flowbase"
	"github.com/rdfio/fbindex/search"
	"github.com/spf13/afero"
)

// DefaultBatchSize is the number of records sent per bulk request by default.
const DefaultBatchSize = 300

// BulkWriter is the part of a search client the BatchIndexer needs.
type BulkWriter interface {
	Bulk(ctx context.Context, req search.BulkRequest) (*search.BulkResponse, error)
	Refresh(ctx context.Context) error
}

type IndexOptions struct {
	BatchSize int
	Index     string
	Metrics   *Metrics
}

// IndexStats summarizes an indexing run.
type IndexStats struct {
	Records int
	Batches int
}

// BatchIndexer sends records to the search engine in bulk requests of
// BatchSize records. Full batches are sent without waiting for visibility;
// the last, partial batch asks for a refresh so that the data can be queried
// as soon as the run is over.
//
// Any rejected item fails the run with a *BulkError listing every rejected
// item of the request. Nothing is retried.
type BatchIndexer struct {
	client    BulkWriter
	batchSize int
	index     string
	metrics   *Metrics
	batch     []*EntityRecord
	stats     IndexStats
}

func NewBatchIndexer(client BulkWriter, opts IndexOptions) *BatchIndexer {
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &BatchIndexer{
		client:    client,
		batchSize: batchSize,
		index:     opts.Index,
		metrics:   opts.Metrics,
		batch:     make([]*EntityRecord, 0, batchSize),
	}
}

// Add queues rec, sending the batch once it is full.
func (ix *BatchIndexer) Add(ctx context.Context, rec *EntityRecord) error {
	ix.batch = append(ix.batch, rec)
	if len(ix.batch) < ix.batchSize {
		return nil
	}
	return ix.flush(ctx, false)
}

// Finish sends what is left of the current batch with a refresh. When
// nothing is left but batches were sent, the index is refreshed instead.
func (ix *BatchIndexer) Finish(ctx context.Context) error {
	if len(ix.batch) > 0 {
		return ix.flush(ctx, true)
	}
	if ix.stats.Batches > 0 {
		if err := ix.client.Refresh(ctx); err != nil {
			return errors.Wrap(err, "refresh after last batch")
		}
	}
	return nil
}

func (ix *BatchIndexer) Stats() IndexStats {
	return ix.stats
}

func (ix *BatchIndexer) flush(ctx context.Context, refresh bool) error {
	batch := ix.batch
	ix.batch = make([]*EntityRecord, 0, ix.batchSize)

	req := search.BulkRequest{
		Items:   make([]search.BulkItem, len(batch)),
		Refresh: refresh,
	}
	for i, rec := range batch {
		req.Items[i] = search.BulkItem{
			Action:   search.Action{Op: "index", Index: ix.index},
			Document: rec,
		}
	}

	flowbase.Debug.Printf("Sending bulk request of %d records (refresh %v)\n", len(batch), refresh)
	ix.metrics.bulkRequest(refresh)
	resp, err := ix.client.Bulk(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "bulk request of %d records", len(batch))
	}
	if len(resp.Items) != len(batch) {
		return errors.Newf("bulk response has %d items for %d records", len(resp.Items), len(batch))
	}
	ix.stats.Batches++

	var failures []BulkFailure
	for i, item := range resp.Items {
		if !item.Failed() {
			continue
		}
		failures = append(failures, BulkFailure{
			Status:    item.Status,
			Error:     item.Error,
			Operation: req.Items[i].Action.Metadata(),
			Document:  batch[i],
		})
	}
	ix.metrics.bulkResult(len(batch)-len(failures), len(failures))
	ix.stats.Records += len(batch) - len(failures)
	if len(failures) > 0 {
		return &BulkError{Failures: failures}
	}
	return nil
}

// IndexFile sends every record of the gzipped record file path to ix.
func IndexFile(ctx context.Context, fileSystem afero.Fs, path string, ix *BatchIndexer) (IndexStats, error) {
	lines, err := OpenGzipLines(fileSystem, path)
	if err != nil {
		return IndexStats{}, err
	}
	defer lines.Close()

	lineNo := 0
	for lines.Scan() {
		lineNo++
		raw := lines.Bytes()
		if len(raw) == 0 {
			continue
		}
		rec := &EntityRecord{}
		if err := json.Unmarshal(raw, rec); err != nil {
			return ix.Stats(), streamError("decode", path, errors.Wrapf(err, "line %d", lineNo))
		}
		if err := ix.Add(ctx, rec); err != nil {
			return ix.Stats(), err
		}
	}
	if err := lines.Err(); err != nil {
		return ix.Stats(), err
	}
	if err := ix.Finish(ctx); err != nil {
		return ix.Stats(), err
	}
	stats := ix.Stats()
	flowbase.Info.Printf("Indexed %d records from %s in %d bulk requests\n", stats.Records, path, stats.Batches)
	return stats, nil
}

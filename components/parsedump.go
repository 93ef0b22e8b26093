package components

import (
	"github.com/cockroachdb/errors"
	"github.com/flowbase/flowbase"
	"github.com/spf13/afero"
)

// ParseOptions configures ParseDump.
type ParseOptions struct {
	Capacity  int
	QueueSize int
	// DisableDuplicateTracking drops the lifetime set of flushed ids, and
	// with it the detection of ids flushed more than once.
	DisableDuplicateTracking bool
	Languages                []string
	// StatementsOut, when set, names a gzipped N-Triples file receiving
	// every statement the parser kept.
	StatementsOut string
	Metrics       *Metrics
}

// ParseStats summarizes a ParseDump run.
type ParseStats struct {
	Lines      int
	Skipped    int
	Statements int
	Records    int
	Duplicates int
}

// ParseDump turns the gzipped statement dump inFile into the gzipped entity
// record file outFile, both on fileSystem.
//
// The stages are chained by bounded channels. The aggregator blocks on a
// full eviction queue, which stops it from taking statements, which stops
// the parser and in turn the reader. Memory stays bounded by the aggregator
// capacity plus the channel buffers. A failing writer stops the reader, so
// the rest of the dump is not read for nothing.
func ParseDump(fileSystem afero.Fs, inFile, outFile string, opts ParseOptions) (ParseStats, error) {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	aggregator, err := NewRecordAggregator(capacity,
		WithDuplicateTracking(!opts.DisableDuplicateTracking),
		WithAggregatorMetrics(opts.Metrics))
	if err != nil {
		return ParseStats{}, err
	}

	pipeRunner := flowbase.NewNet()

	fileReader := NewGzipFileReader(fileSystem, opts.Metrics)
	pipeRunner.AddProcess(fileReader)

	tripleParser := NewTripleParser(opts.Metrics)
	tripleParser.Languages = opts.Languages
	pipeRunner.AddProcess(tripleParser)

	recordAggregator := NewAggregateRecordsPerSubject(aggregator, opts.QueueSize, opts.Metrics)
	pipeRunner.AddProcess(recordAggregator)

	recordWriter := NewRecordFileWriter(fileSystem, outFile)
	pipeRunner.AddProcess(recordWriter)

	var tap *StatementWriter
	if opts.StatementsOut != "" {
		tap, err = NewStatementWriter(fileSystem, opts.StatementsOut)
		if err != nil {
			return ParseStats{}, err
		}
		tripleParser.SetTap(tap)
	}

	tripleParser.In = fileReader.OutLine
	recordAggregator.In = tripleParser.Out
	recordAggregator.SendTo(recordWriter)
	fileReader.StopOn(recordWriter.Done())

	go func() {
		defer close(fileReader.InFileName)
		fileReader.InFileName <- inFile
	}()

	flowbase.Debug.Printf("Parsing %s into %s (capacity %d)\n", inFile, outFile, capacity)
	pipeRunner.Run()

	stats := ParseStats{
		Lines:      fileReader.Lines(),
		Skipped:    tripleParser.Skipped(),
		Statements: tripleParser.Matched(),
		Records:    recordWriter.Written(),
		Duplicates: aggregator.Duplicates(),
	}

	var tapErr error
	if tap != nil {
		tapErr = tap.Close()
	}
	if err := fileReader.Err(); err != nil {
		return stats, errors.Wrapf(err, "parse %s", inFile)
	}
	if err := recordWriter.Err(); err != nil {
		return stats, errors.Wrapf(err, "parse %s", inFile)
	}
	if tapErr != nil {
		return stats, errors.Wrapf(tapErr, "parse %s", inFile)
	}
	flowbase.Info.Printf("Parsed %s: %d lines, %d skipped, %d statements, %d records, %d duplicate flushes\n",
		inFile, stats.Lines, stats.Skipped, stats.Statements, stats.Records, stats.Duplicates)
	return stats, nil
}

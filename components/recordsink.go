package components

import (
	"bufio"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/flowbase/flowbase"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// MarshalRecord serializes rec to one line of JSON, newline included.
func MarshalRecord(rec *EntityRecord) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal record %s", rec.MID)
	}
	return append(b, '\n'), nil
}

// offer sends rec on ch if that can be done without waiting.
func offer(ch chan<- *EntityRecord, rec *EntityRecord) bool {
	select {
	case ch <- rec:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------------
// RecordFileWriter
// --------------------------------------------------------------------------------

// RecordFileWriter is a process that writes the records it receives on In as
// gzipped JSON lines to a file. On the first write error it closes Done, so
// that the source of the pipeline can stop, keeps consuming In until upstream
// processes have finished and reports the error from Err.
type RecordFileWriter struct {
	In       chan *EntityRecord
	fs       afero.Fs
	fileName string
	written  int
	err      error
	done     chan struct{}
}

func NewRecordFileWriter(fileSystem afero.Fs, fileName string) *RecordFileWriter {
	return &RecordFileWriter{
		In:       make(chan *EntityRecord, BUFSIZE),
		fs:       fileSystem,
		fileName: fileName,
		done:     make(chan struct{}),
	}
}

// Offer hands rec to the writer without blocking. It returns false when the
// writer cannot take it right now; the caller then has to wait before
// producing more.
func (p *RecordFileWriter) Offer(rec *EntityRecord) bool {
	return offer(p.In, rec)
}

// Run runs the RecordFileWriter process.
func (p *RecordFileWriter) Run() {
	fh, err := p.fs.Create(p.fileName)
	if err != nil {
		p.fail(streamError("create", p.fileName, err))
		p.discard()
		return
	}
	gz := gzip.NewWriter(fh)
	bw := bufio.NewWriter(gz)

	for rec := range p.In {
		if p.err != nil {
			continue
		}
		line, err := MarshalRecord(rec)
		if err != nil {
			p.fail(err)
			continue
		}
		if _, err := bw.Write(line); err != nil {
			p.fail(streamError("write", p.fileName, err))
			continue
		}
		p.written++
	}

	if err := bw.Flush(); err != nil {
		p.fail(streamError("flush", p.fileName, err))
	}
	if err := gz.Close(); err != nil {
		p.fail(streamError("compress", p.fileName, err))
	}
	if err := fh.Close(); err != nil {
		p.fail(streamError("close", p.fileName, err))
	}
	flowbase.Debug.Printf("Wrote %d records to %s\n", p.written, p.fileName)
}

// Written returns the number of records written. Valid once Run returned.
func (p *RecordFileWriter) Written() int {
	return p.written
}

// Err returns the first error the writer ran into. Valid once Run returned.
func (p *RecordFileWriter) Err() error {
	return p.err
}

// Done is closed when the writer fails. Records sent after that are dropped.
func (p *RecordFileWriter) Done() <-chan struct{} {
	return p.done
}

func (p *RecordFileWriter) fail(err error) {
	if p.err == nil {
		flowbase.Error.Println(err.Error())
		p.err = err
		close(p.done)
	}
}

func (p *RecordFileWriter) discard() {
	for range p.In {
	}
}

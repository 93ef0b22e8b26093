package components

import (
	"github.com/flowbase/flowbase"
	"github.com/klauspost/compress/gzip"
	"github.com/knakk/rdf"
	"github.com/spf13/afero"
)

// StatementWriter writes recognized statements back out as gzipped
// N-Triples, for inspecting what the parser kept out of a dump.
type StatementWriter struct {
	fileName string
	fh       afero.File
	gz       *gzip.Writer
	enc      *rdf.TripleEncoder
	written  int
	err      error
}

func NewStatementWriter(fileSystem afero.Fs, fileName string) (*StatementWriter, error) {
	fh, err := fileSystem.Create(fileName)
	if err != nil {
		return nil, streamError("create", fileName, err)
	}
	gz := gzip.NewWriter(fh)
	return &StatementWriter{
		fileName: fileName,
		fh:       fh,
		gz:       gz,
		enc:      rdf.NewTripleEncoder(gz, rdf.NTriples),
	}, nil
}

// Write encodes st. Statements that are not valid RDF terms are skipped.
func (w *StatementWriter) Write(st Statement) {
	if w.err != nil {
		return
	}
	tr, err := st.Triple()
	if err != nil {
		flowbase.Debug.Printf("Not writing statement about %s: %v\n", st.SubjectID, err)
		return
	}
	if err := w.enc.Encode(tr); err != nil {
		w.err = streamError("write", w.fileName, err)
		return
	}
	w.written++
}

// Close flushes the encoder and closes the file. It returns the first error
// seen while writing.
func (w *StatementWriter) Close() error {
	if err := w.enc.Close(); err != nil && w.err == nil {
		w.err = streamError("write", w.fileName, err)
	}
	if err := w.gz.Close(); err != nil && w.err == nil {
		w.err = streamError("compress", w.fileName, err)
	}
	if err := w.fh.Close(); err != nil && w.err == nil {
		w.err = streamError("close", w.fileName, err)
	}
	flowbase.Debug.Printf("Wrote %d statements to %s\n", w.written, w.fileName)
	return w.err
}

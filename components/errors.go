package components

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// StreamError is a failure reading, decompressing, compressing or writing one
// of the pipeline files. It aborts the operation it happened in.
type StreamError struct {
	Op   string
	Path string
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func streamError(op, path string, err error) error {
	return &StreamError{Op: op, Path: path, Err: errors.WithStack(err)}
}

// BulkFailure is one item of a bulk request that the search engine rejected.
type BulkFailure struct {
	Status    int             `json:"status"`
	Error     json.RawMessage `json:"error"`
	Operation map[string]any  `json:"operation"`
	Document  *EntityRecord   `json:"document"`
}

// BulkError carries every rejected item of a bulk request. A run that hits
// one is not successful, whatever the number of accepted items.
type BulkError struct {
	Failures []BulkFailure
}

func (e *BulkError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("bulk write failed for %s (status %d): %s", f.Document.MID, f.Status, f.Error)
	}
	return fmt.Sprintf("bulk write failed for %d documents", len(e.Failures))
}

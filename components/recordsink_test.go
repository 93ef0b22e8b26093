package components

import (
	"fmt"
	"testing"

	"github.com/flowbase/flowbase"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRecord(t *testing.T) {
	rec := NewEntityRecord("abc")
	rec.SetTitle("en", "Title")
	rec.AddAlias("en", "Alias")
	rec.AddType("SomeType")

	line, err := MarshalRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"mid":"abc","title":{"en":"Title"},"aliases":{"en":["Alias"]},"types":["SomeType"]}`+"\n", string(line))
}

func TestMarshalRecordEmpty(t *testing.T) {
	line, err := MarshalRecord(NewEntityRecord("x"))
	require.NoError(t, err)
	assert.Equal(t, `{"mid":"x","title":{},"aliases":{},"types":[]}`+"\n", string(line))
}

func TestMarshalRecordEscapes(t *testing.T) {
	rec := NewEntityRecord("x")
	rec.SetTitle("en", "two\nlines \"quoted\"")
	line, err := MarshalRecord(rec)
	require.NoError(t, err)
	assert.Contains(t, string(line), `"en":"two\nlines \"quoted\""`)
	assert.Equal(t, 1, countNewlines(line))
}

func countNewlines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

// TestNewRecordFileWriter tests NewRecordFileWriter
func TestNewRecordFileWriter(t *testing.T) {
	w := NewRecordFileWriter(afero.NewMemMapFs(), "out.gz")
	if w.In == nil {
		t.Error("In-port not initialized")
	}
}

func TestRecordFileWriterOffer(t *testing.T) {
	w := NewRecordFileWriter(afero.NewMemMapFs(), "out.gz")
	for i := 0; i < cap(w.In); i++ {
		assert.True(t, w.Offer(NewEntityRecord("a")))
	}
	assert.False(t, w.Offer(NewEntityRecord("b")), "a full writer must refuse more records")

	<-w.In
	assert.True(t, w.Offer(NewEntityRecord("c")))
}

func TestRecordFileWriter(t *testing.T) {
	flowbase.InitLogWarning()

	fs := afero.NewMemMapFs()
	w := NewRecordFileWriter(fs, "out.gz")
	go func() {
		defer close(w.In)
		a := NewEntityRecord("a")
		a.AddType("T")
		w.In <- a
		w.In <- NewEntityRecord("b")
	}()
	w.Run()

	require.NoError(t, w.Err())
	assert.Equal(t, 2, w.Written())
	assert.Equal(t, []string{
		`{"mid":"a","title":{},"aliases":{},"types":["T"]}`,
		`{"mid":"b","title":{},"aliases":{},"types":[]}`,
	}, readGzipFile(t, fs, "out.gz"))
}

func TestRecordFileWriterCreateError(t *testing.T) {
	flowbase.InitLogWarning()

	w := NewRecordFileWriter(afero.NewReadOnlyFs(afero.NewMemMapFs()), "out.gz")
	go func() {
		defer close(w.In)
		w.In <- NewEntityRecord("a")
	}()
	w.Run()

	var streamErr *StreamError
	require.ErrorAs(t, w.Err(), &streamErr)
	assert.Equal(t, "create", streamErr.Op)
	assert.Equal(t, 0, w.Written())
}

func TestRecordFileWriterWriteError(t *testing.T) {
	flowbase.InitLogWarning()

	w := NewRecordFileWriter(fullDiskFs{afero.NewMemMapFs()}, "out.gz")
	go func() {
		defer close(w.In)
		for i := 0; i < 500; i++ {
			w.In <- NewEntityRecord(fmt.Sprintf("m%d", i))
		}
	}()
	w.Run()

	var streamErr *StreamError
	require.ErrorAs(t, w.Err(), &streamErr)
	assert.Equal(t, "write", streamErr.Op)
	assert.Contains(t, w.Err().Error(), "disk full")
	assert.Less(t, w.Written(), 500)

	select {
	case <-w.Done():
	default:
		t.Error("Done not closed after a write error")
	}
}

func TestRecordFileWriterDoneOpenOnSuccess(t *testing.T) {
	flowbase.InitLogWarning()

	w := NewRecordFileWriter(afero.NewMemMapFs(), "out.gz")
	close(w.In)
	w.Run()
	require.NoError(t, w.Err())

	select {
	case <-w.Done():
		t.Error("Done closed without an error")
	default:
	}
}

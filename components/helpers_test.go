package components

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeGzipFile(t *testing.T, fs afero.Fs, name string, lines ...string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, afero.WriteFile(fs, name, buf.Bytes(), 0o644))
}

func readGzipFile(t *testing.T, fs afero.Fs, name string) []string {
	t.Helper()
	fh, err := fs.Open(name)
	require.NoError(t, err)
	defer fh.Close()
	gz, err := gzip.NewReader(fh)
	require.NoError(t, err)
	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(content), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// fullDiskFs creates files whose writes all fail, as on a full disk.
type fullDiskFs struct {
	afero.Fs
}

func (fs fullDiskFs) Create(name string) (afero.File, error) {
	f, err := fs.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return fullDiskFile{f}, nil
}

type fullDiskFile struct {
	afero.File
}

func (f fullDiskFile) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

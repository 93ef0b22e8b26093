package components

import (
	"fmt"
	"testing"

	"github.com/flowbase/flowbase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, pred, object string) string {
	return fmt.Sprintf("<%sm.%s>\t<%s>\t%s\t.", fbNS, id, pred, object)
}

func TestParseDumpSingleEntity(t *testing.T) {
	flowbase.InitLogWarning()

	fs := afero.NewMemMapFs()
	writeGzipFile(t, fs, "dump.gz",
		line("abc", PredicateAlias, `"Alias"@en`),
		line("abc", PredicateName, `"Title"@en`),
		line("abc", PredicateType, "<"+fbNS+"SomeType>"),
	)

	stats, err := ParseDump(fs, "dump.gz", "out.gz", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, ParseStats{Lines: 3, Statements: 3, Records: 1}, stats)
	assert.Equal(t, []string{
		`{"mid":"abc","title":{"en":"Title"},"aliases":{"en":["Alias"]},"types":["SomeType"]}`,
	}, readGzipFile(t, fs, "out.gz"))
}

func TestParseDumpSkipsMalformedLines(t *testing.T) {
	flowbase.InitLogWarning()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	writeGzipFile(t, fs, "dump.gz",
		"@prefix ns: <http://rdf.freebase.com/ns/> .",
		line("abc", PredicateName, `"Title"@en`),
		"this is not a triple",
		line("abc", fbNS+"common.topic.description", `"Text"@en`),
	)

	stats, err := ParseDump(fs, "dump.gz", "out.gz", ParseOptions{Metrics: m})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, stats.Statements)
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.LinesRead))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatementsIgnored))
}

func TestParseDumpPrematureFlush(t *testing.T) {
	flowbase.InitLogWarning()

	fs := afero.NewMemMapFs()
	writeGzipFile(t, fs, "dump.gz",
		line("abc", PredicateAlias, `"Alias"@en`),
		line("x", PredicateName, `"X"@en`),
		line("y", PredicateName, `"Y"@en`),
		line("abc", PredicateName, `"Title"@en`),
	)

	stats, err := ParseDump(fs, "dump.gz", "out.gz", ParseOptions{Capacity: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, []string{
		`{"mid":"abc","title":{},"aliases":{"en":["Alias"]},"types":[]}`,
		`{"mid":"x","title":{"en":"X"},"aliases":{},"types":[]}`,
		`{"mid":"y","title":{"en":"Y"},"aliases":{},"types":[]}`,
		`{"mid":"abc","title":{"en":"Title"},"aliases":{},"types":[]}`,
	}, readGzipFile(t, fs, "out.gz"))

	// With room for every entity the two statements end up in one record.
	stats, err = ParseDump(fs, "dump.gz", "out3.gz", ParseOptions{Capacity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 0, stats.Duplicates)
	assert.Contains(t, readGzipFile(t, fs, "out3.gz"),
		`{"mid":"abc","title":{"en":"Title"},"aliases":{"en":["Alias"]},"types":[]}`)
}

func TestParseDumpDeterministic(t *testing.T) {
	flowbase.InitLogWarning()

	var lines []string
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("e%d", (i*7)%53)
		lines = append(lines, line(id, PredicateAlias, fmt.Sprintf(`"alias %d"@en`, i)))
	}
	fs := afero.NewMemMapFs()
	writeGzipFile(t, fs, "dump.gz", lines...)

	_, err := ParseDump(fs, "dump.gz", "a.gz", ParseOptions{Capacity: 10, QueueSize: 1})
	require.NoError(t, err)
	_, err = ParseDump(fs, "dump.gz", "b.gz", ParseOptions{Capacity: 10, QueueSize: 1})
	require.NoError(t, err)

	a, b := readGzipFile(t, fs, "a.gz"), readGzipFile(t, fs, "b.gz")
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestParseDumpLanguagesAndTap(t *testing.T) {
	flowbase.InitLogWarning()

	fs := afero.NewMemMapFs()
	writeGzipFile(t, fs, "dump.gz",
		line("abc", PredicateName, `"Title"@en`),
		line("abc", PredicateName, `"Titre"@fr`),
		line("abc", PredicateType, "<"+fbNS+"SomeType>"),
	)

	_, err := ParseDump(fs, "dump.gz", "out.gz", ParseOptions{
		Languages:     []string{"en"},
		StatementsOut: "statements.nt.gz",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`{"mid":"abc","title":{"en":"Title"},"aliases":{},"types":["SomeType"]}`,
	}, readGzipFile(t, fs, "out.gz"))
	assert.Equal(t, []string{
		`<` + fbNS + `m.abc> <` + PredicateName + `> "Title"@en .`,
		`<` + fbNS + `m.abc> <` + PredicateType + `> <` + fbNS + `SomeType> .`,
	}, readGzipFile(t, fs, "statements.nt.gz"))
}

func TestParseDumpMissingInput(t *testing.T) {
	flowbase.InitLogWarning()

	_, err := ParseDump(afero.NewMemMapFs(), "missing.gz", "out.gz", ParseOptions{})
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "open", streamErr.Op)
}

func TestParseDumpStopsReadingAfterWriteError(t *testing.T) {
	flowbase.InitLogWarning()

	const total = 50000
	lines := make([]string, total)
	for i := range lines {
		lines[i] = line(fmt.Sprintf("e%d", i), PredicateName, fmt.Sprintf(`"Entity %d"@en`, i))
	}
	mem := afero.NewMemMapFs()
	writeGzipFile(t, mem, "dump.gz", lines...)

	stats, err := ParseDump(fullDiskFs{mem}, "dump.gz", "out.gz", ParseOptions{Capacity: 10, QueueSize: 1})
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "write", streamErr.Op)
	assert.Equal(t, "out.gz", streamErr.Path)
	assert.Less(t, stats.Lines, total, "the dump must not be read to the end after the writer failed")
}

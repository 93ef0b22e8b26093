package components

import (
	"bufio"

	"github.com/flowbase/flowbase"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// maxLineSize bounds a single line of the dump or of the intermediate file.
const maxLineSize = 16 * 1024 * 1024

// GzipLines reads the lines of a gzipped file.
type GzipLines struct {
	*bufio.Scanner
	path string
	fh   afero.File
	gz   *gzip.Reader
}

// OpenGzipLines opens path on fs for line by line reading of its
// decompressed content.
func OpenGzipLines(fs afero.Fs, path string) (*GzipLines, error) {
	fh, err := fs.Open(path)
	if err != nil {
		return nil, streamError("open", path, err)
	}
	gz, err := gzip.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, streamError("decompress", path, err)
	}
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &GzipLines{Scanner: sc, path: path, fh: fh, gz: gz}, nil
}

// Err returns the read error that stopped Scan, if any.
func (l *GzipLines) Err() error {
	if err := l.Scanner.Err(); err != nil {
		return streamError("read", l.path, err)
	}
	return nil
}

func (l *GzipLines) Close() error {
	gzErr := l.gz.Close()
	if err := l.fh.Close(); err != nil {
		return streamError("close", l.path, err)
	}
	if gzErr != nil {
		return streamError("decompress", l.path, gzErr)
	}
	return nil
}

// --------------------------------------------------------------------------------
// GzipFileReader
// --------------------------------------------------------------------------------

// GzipFileReader is a process that reads gzipped files, based on file names
// it receives on the InFileName port / channel, and writes out the
// decompressed content line by line as strings on the OutLine port / channel.
type GzipFileReader struct {
	InFileName chan string
	OutLine    chan string
	fs         afero.Fs
	metrics    *Metrics
	stop       <-chan struct{}
	stopped    bool
	lines      int
	err        error
}

// NewOsGzipFileReader returns an initialized GzipFileReader, initialized with
// an OS (normal) file system
func NewOsGzipFileReader(metrics *Metrics) *GzipFileReader {
	return NewGzipFileReader(afero.NewOsFs(), metrics)
}

// NewGzipFileReader returns an initialized GzipFileReader, initialized with an
// afero file system provided as a parameter
func NewGzipFileReader(fileSystem afero.Fs, metrics *Metrics) *GzipFileReader {
	return &GzipFileReader{
		InFileName: make(chan string, BUFSIZE),
		OutLine:    make(chan string, BUFSIZE),
		fs:         fileSystem,
		metrics:    metrics,
	}
}

// StopOn makes the reader stop sending lines once stop is closed. Lines not
// yet read are left unread, and no error is reported for them.
func (p *GzipFileReader) StopOn(stop <-chan struct{}) {
	p.stop = stop
}

// Run runs the GzipFileReader process. A failing file stops the reader; the
// remaining file names are drained and the error is reported by Err.
func (p *GzipFileReader) Run() {
	defer close(p.OutLine)

	for fileName := range p.InFileName {
		if p.err != nil || p.stopped {
			continue
		}
		flowbase.Debug.Printf("Starting processing file %s\n", fileName)
		if err := p.readFile(fileName); err != nil {
			flowbase.Error.Println(err.Error())
			p.err = err
		}
	}
}

func (p *GzipFileReader) readFile(fileName string) error {
	lines, err := OpenGzipLines(p.fs, fileName)
	if err != nil {
		return err
	}
	for lines.Scan() {
		p.lines++
		p.metrics.lineRead()
		select {
		case p.OutLine <- lines.Text():
		case <-p.stop:
			flowbase.Debug.Printf("Stopped reading %s after %d lines\n", fileName, p.lines)
			p.stopped = true
			return lines.Close()
		}
	}
	if err := lines.Err(); err != nil {
		lines.Close()
		return err
	}
	return lines.Close()
}

// Lines returns the number of lines read so far.
func (p *GzipFileReader) Lines() int {
	return p.lines
}

// Stopped tells whether the reader quit early because of StopOn.
func (p *GzipFileReader) Stopped() bool {
	return p.stopped
}

// Err returns the error that stopped the reader. Valid once Run returned.
func (p *GzipFileReader) Err() error {
	return p.err
}

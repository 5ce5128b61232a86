package core

// streaming.go prepares raw input bytes for the delimited-text parser.
//
// Exports from spreadsheet tools often carry a UTF-8 byte order mark and the
// occasional byte that is not valid UTF-8. WrapSource removes the former and
// replaces the latter with U+FFFD while streaming, so the parser never sees
// either and memory stays O(buffer size).

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with an optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if the total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// WrapSource strips a leading BOM and replaces ill-formed UTF-8 on the fly.
// The returned reader counts the raw bytes consumed from r, which is what a
// size limit has to be checked against.
func WrapSource(r io.Reader, totalSize int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, totalSize)
	return transform.NewReader(counter, unicode.UTF8BOM.NewDecoder()), counter
}

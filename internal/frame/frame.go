// Package frame splits a raw SBS byte stream into complete newline-delimited
// lines, retaining any trailing partial line between reads.
package frame

import (
	"bytes"
	"errors"
	"strings"
)

// DefaultMaxLineBytes is the ceiling on bytes buffered while waiting for a
// newline. A peer that streams data without ever sending '\n' is treated as
// a broken stream rather than allowed to grow the buffer without bound.
const DefaultMaxLineBytes = 1 << 20

// ErrLineTooLong reports that the retained partial line exceeded the
// decoder's byte ceiling. The stream is unusable past this point; callers
// should drop the connection and Reset the decoder.
var ErrLineTooLong = errors.New("frame: buffered line exceeds maximum length")

// Decoder extracts complete lines from an incrementally received byte
// stream. It is not safe for concurrent use.
type Decoder struct {
	maxLineBytes int
	remainder    []byte
}

// NewDecoder returns a Decoder that buffers at most maxLineBytes while
// waiting for a line terminator. Values <= 0 select DefaultMaxLineBytes.
func NewDecoder(maxLineBytes int) *Decoder {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Decoder{maxLineBytes: maxLineBytes}
}

// Feed appends chunk to the retained remainder and returns every complete
// line now available, in order. A line runs up to (and excludes) '\n', with
// one trailing '\r' stripped. Invalid UTF-8 sequences are dropped and
// whitespace-only lines are discarded. The bytes after the last newline are
// held for the next call.
//
// Feed returns ErrLineTooLong once the remainder outgrows the configured
// ceiling; lines extracted before the overflow are still returned.
func (d *Decoder) Feed(chunk []byte) ([]string, error) {
	d.remainder = append(d.remainder, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.remainder, '\n')
		if i < 0 {
			break
		}
		raw := d.remainder[:i]
		d.remainder = d.remainder[i+1:]

		if n := len(raw); n > 0 && raw[n-1] == '\r' {
			raw = raw[:n-1]
		}

		// The feed is untrusted text; drop malformed bytes instead of failing.
		line := strings.ToValidUTF8(string(raw), "")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(d.remainder) > d.maxLineBytes {
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// Reset discards the retained remainder. Call after reconnecting so a
// partial line from the previous connection never prefixes the new stream.
func (d *Decoder) Reset() {
	d.remainder = nil
}

// Buffered returns the number of retained partial-line bytes.
func (d *Decoder) Buffered() int {
	return len(d.remainder)
}

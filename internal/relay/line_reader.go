// Package relay provides lossless line transport for the tunnel client's
// stderr stream.
//
// The stream has two consumers over its lifetime: the supervisor's readiness
// detector reads it synchronously until the tunnel is up, then hands the
// buffered reader to a background Relay that drains it for the rest of the
// process's life. Every line ends up on one unbounded Queue, in read order,
// so the probe loop can attach a complete transcript to each uploaded record.
package relay

import (
	"bufio"
	"errors"
	"io"
)

// LineReader reads newline-terminated lines from a byte stream.
//
// Unlike bufio.Scanner it keeps the line terminator, reuses one internal
// buffer across calls, and reports end-of-stream as a zero-length line
// rather than a sentinel error. That distinction matters here: an empty
// stderr line is "\n" (one byte), while a zero-length result means the
// child exited or closed its stderr.
type LineReader struct {
	br  *bufio.Reader
	buf []byte
}

// NewLineReader wraps r. The reader owns its buffering; once handed to a
// Relay the caller must not read from r again.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		br:  bufio.NewReader(r),
		buf: make([]byte, 0, 256),
	}
}

// ReadLine returns the next line including its terminator, or the final
// unterminated line at end-of-stream. A zero-length result with a nil
// error means the stream is closed. The returned slice is only valid
// until the next call.
func (lr *LineReader) ReadLine() ([]byte, error) {
	lr.buf = lr.buf[:0]
	for {
		frag, err := lr.br.ReadSlice('\n')
		lr.buf = append(lr.buf, frag...)
		switch {
		case err == nil:
			return lr.buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			// Long line, keep accumulating.
		case errors.Is(err, io.EOF):
			return lr.buf, nil
		default:
			return lr.buf, err
		}
	}
}

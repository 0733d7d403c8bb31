// File: internal/protocol/buffer.go
package protocol

import "bytes"

// LineBuffer accumulates socket reads and yields complete newline-terminated
// lines one at a time. A response may straddle multiple underlying reads, or
// several responses may already sit in the buffer from earlier reads; either
// way exactly one decoded line is produced per Line call and the remaining
// bytes stay available for the next call.
type LineBuffer struct {
	buf []byte
}

// Append adds raw bytes from a socket read to the buffer.
func (b *LineBuffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

// Line pops the first complete line, newline stripped. The second return is
// false when no full line is buffered yet.
func (b *LineBuffer) Line() ([]byte, bool) {
	i := bytes.IndexByte(b.buf, '\n')
	if i < 0 {
		return nil, false
	}
	line := make([]byte, i)
	copy(line, b.buf[:i])
	b.buf = b.buf[i+1:]
	return line, true
}

// Len reports the number of buffered bytes not yet consumed.
func (b *LineBuffer) Len() int { return len(b.buf) }

// Reset discards all buffered bytes. Used when a connection is abandoned.
func (b *LineBuffer) Reset() { b.buf = nil }

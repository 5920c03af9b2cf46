package python

import (
	"bytes"
	"fmt"
	"sync"
)

// OutputCollector is an io.Writer that keeps the first limit bytes written
// to it and counts the rest. A script that prints without bound cannot
// exhaust memory, and what it printed first is what the user sees.
//
// It is safe for concurrent use. Write after Close is a no-op.
type OutputCollector struct {
	mu            sync.Mutex
	buf           []byte
	total         int64
	totalNewlines int
	limit         int
	closed        bool
}

// NewOutputCollector creates a collector keeping at most limit bytes.
func NewOutputCollector(limit int) *OutputCollector {
	return &OutputCollector{limit: limit}
}

// Write implements io.Writer. It never fails, so the writer on the other
// end of the pipe is never blocked by a full collector.
func (c *OutputCollector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(p)
	if c.closed {
		return n, nil
	}
	c.total += int64(n)
	c.totalNewlines += bytes.Count(p, []byte{'\n'})
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		c.buf = append(c.buf, p...)
	}
	return n, nil
}

// Bytes returns a copy of the kept output.
func (c *OutputCollector) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf...)
}

// TotalBytes returns the number of bytes written, kept or not.
func (c *OutputCollector) TotalBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// TotalNewlines returns the number of newlines written, kept or not.
func (c *OutputCollector) TotalNewlines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalNewlines
}

// Truncated reports whether output was dropped.
func (c *OutputCollector) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total > int64(len(c.buf))
}

// String returns the kept output, followed by a notice when output was
// dropped.
func (c *OutputCollector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := c.total - int64(len(c.buf))
	if dropped <= 0 {
		return string(c.buf)
	}
	s := string(c.buf)
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s + fmt.Sprintf("[output truncated: %d of %d bytes not shown]\n", dropped, c.total)
}

// Close stops collection. Subsequent writes are discarded.
func (c *OutputCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

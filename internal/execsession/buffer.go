// Package execsession runs external commands for tools, over pipes or a
// pseudo-terminal, and keeps their output within a fixed budget.
package execsession

import (
	"fmt"
	"sync"
)

// DefaultMaxBytes is the default output budget (1 MiB).
const DefaultMaxBytes = 1 << 20

// HeadTailBuffer keeps the first and last bytes written to it and drops the
// middle once the budget is exceeded. Half the budget goes to the head.
type HeadTailBuffer struct {
	mu      sync.Mutex
	max     int
	headCap int
	head    []byte
	tail    []byte
	omitted int
}

// NewHeadTailBuffer creates a buffer that retains at most maxBytes.
func NewHeadTailBuffer(maxBytes int) *HeadTailBuffer {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &HeadTailBuffer{max: maxBytes, headCap: maxBytes / 2}
}

// Write implements io.Writer. It never fails.
func (b *HeadTailBuffer) Write(p []byte) (int, error) {
	b.Push(p)
	return len(p), nil
}

// Push appends chunk, filling the head first and rolling the tail.
func (b *HeadTailBuffer) Push(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if room := b.headCap - len(b.head); room > 0 {
		n := min(room, len(chunk))
		b.head = append(b.head, chunk[:n]...)
		chunk = chunk[n:]
	}
	if len(chunk) == 0 {
		return
	}

	tailCap := b.max - b.headCap
	if tailCap == 0 {
		b.omitted += len(chunk)
		return
	}
	b.tail = append(b.tail, chunk...)
	if over := len(b.tail) - tailCap; over > 0 {
		b.omitted += over
		b.tail = b.tail[over:]
	}
}

// Snapshot returns the retained bytes, head then tail, or nil when empty.
func (b *HeadTailBuffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.head)+len(b.tail) == 0 {
		return nil
	}
	out := make([]byte, 0, len(b.head)+len(b.tail))
	out = append(out, b.head...)
	return append(out, b.tail...)
}

// String returns the retained output with a marker where bytes were dropped.
func (b *HeadTailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.omitted == 0 {
		return string(b.head) + string(b.tail)
	}
	return fmt.Sprintf("%s\n... [%d bytes omitted] ...\n%s", b.head, b.omitted, b.tail)
}

// RetainedBytes returns the number of bytes currently held.
func (b *HeadTailBuffer) RetainedBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.head) + len(b.tail)
}

// OmittedBytes returns the number of bytes dropped from the middle.
func (b *HeadTailBuffer) OmittedBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.omitted
}

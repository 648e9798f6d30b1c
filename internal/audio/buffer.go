package audio

import (
	"sync"
	"time"
)

// chunkBuffer accumulates encoded audio and cuts it into chunks on a
// fixed flush interval. Chunks are only joined into the final blob on
// Stop; nothing is discarded in between.
type chunkBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	pending   []byte
	interval  time.Duration
	lastFlush time.Time
}

func newChunkBuffer(interval time.Duration) *chunkBuffer {
	if interval <= 0 {
		interval = time.Second
	}
	return &chunkBuffer{interval: interval, lastFlush: time.Now()}
}

func (b *chunkBuffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, data...)
	if now := time.Now(); now.Sub(b.lastFlush) >= b.interval {
		b.flushLocked(now)
	}
}

func (b *chunkBuffer) flushLocked(now time.Time) {
	if len(b.pending) > 0 {
		b.chunks = append(b.chunks, b.pending)
		b.pending = nil
	}
	b.lastFlush = now
}

// Bytes flushes any pending data and joins all chunks.
func (b *chunkBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked(time.Now())

	total := 0
	for _, chunk := range b.chunks {
		total += len(chunk)
	}
	joined := make([]byte, 0, total)
	for _, chunk := range b.chunks {
		joined = append(joined, chunk...)
	}
	return joined
}

// Len reports buffered bytes across chunks and pending data.
func (b *chunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := len(b.pending)
	for _, chunk := range b.chunks {
		total += len(chunk)
	}
	return total
}

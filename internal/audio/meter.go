package audio

import (
	"encoding/binary"
	"sync"
)

// LevelMeter derives a normalized loudness signal from raw s16le
// samples. It is purely observational: feed it the PCM tap and poll
// Snapshot on a fixed interval. With no samples since the last poll
// (capture inactive or paused) the level is 0.
type LevelMeter struct {
	mu     sync.Mutex
	sum    float64
	count  int
	odd    byte
	hasOdd bool
}

func NewLevelMeter() *LevelMeter {
	return &LevelMeter{}
}

// Feed accumulates little-endian 16-bit samples. A trailing odd byte
// is carried over to the next call.
func (m *LevelMeter) Feed(pcm []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasOdd && len(pcm) > 0 {
		sample := int16(binary.LittleEndian.Uint16([]byte{m.odd, pcm[0]}))
		m.accumulate(sample)
		pcm = pcm[1:]
		m.hasOdd = false
	}
	for len(pcm) >= 2 {
		m.accumulate(int16(binary.LittleEndian.Uint16(pcm[:2])))
		pcm = pcm[2:]
	}
	if len(pcm) == 1 {
		m.odd = pcm[0]
		m.hasOdd = true
	}
}

func (m *LevelMeter) accumulate(sample int16) {
	v := float64(sample)
	if v < 0 {
		v = -v
	}
	m.sum += v
	m.count++
}

// Snapshot returns the mean sample magnitude since the last call,
// normalized to [0,1], and resets the window.
func (m *LevelMeter) Snapshot() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == 0 {
		return 0
	}
	level := m.sum / float64(m.count) / 32768.0
	m.sum = 0
	m.count = 0
	if level > 1 {
		level = 1
	}
	return level
}

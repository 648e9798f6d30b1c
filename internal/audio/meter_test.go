package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestLevelMeterSnapshotNormalizesMeanMagnitude(t *testing.T) {
	t.Parallel()

	meter := NewLevelMeter()

	samples := []int16{16384, -16384, 16384, -16384}
	pcm := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(s))
	}
	meter.Feed(pcm)

	level := meter.Snapshot()
	if math.Abs(level-0.5) > 0.001 {
		t.Fatalf("expected level 0.5, got %f", level)
	}
}

func TestLevelMeterEmitsZeroWithoutSamples(t *testing.T) {
	t.Parallel()

	meter := NewLevelMeter()
	if level := meter.Snapshot(); level != 0 {
		t.Fatalf("expected 0 for empty window, got %f", level)
	}

	meter.Feed([]byte{0x00, 0x40}) // one sample
	if level := meter.Snapshot(); level == 0 {
		t.Fatalf("expected non-zero level after samples")
	}
	if level := meter.Snapshot(); level != 0 {
		t.Fatalf("expected window reset after snapshot, got %f", level)
	}
}

func TestLevelMeterCarriesOddByte(t *testing.T) {
	t.Parallel()

	meter := NewLevelMeter()
	meter.Feed([]byte{0x00})
	meter.Feed([]byte{0x40})

	level := meter.Snapshot()
	if math.Abs(level-0.5) > 0.001 {
		t.Fatalf("expected split sample to count, got %f", level)
	}
}

func TestChunkBufferFlushesOnInterval(t *testing.T) {
	t.Parallel()

	buf := newChunkBuffer(time.Millisecond)
	buf.Append([]byte("abc"))
	time.Sleep(5 * time.Millisecond)
	buf.Append([]byte("def"))

	if got := buf.Len(); got != 6 {
		t.Fatalf("expected 6 buffered bytes, got %d", got)
	}
	if got := string(buf.Bytes()); got != "abcdef" {
		t.Fatalf("unexpected joined buffer: %q", got)
	}
}

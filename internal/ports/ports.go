package ports

import (
	"context"
	"io"

	"medscribe/internal/domain"
)

// CaptureConfig describes how the microphone should be captured.
type CaptureConfig struct {
	InputFormat   string // platform capture backend, e.g. "pulse"
	InputDevice   string
	SampleRate    int
	Channels      int
	PrimaryMime   string // preferred container, e.g. "audio/mp4"
	FallbackMime  string // codec fallback, e.g. "audio/webm"
	FlushInterval int    // chunk flush interval in milliseconds
}

// CaptureSession is one live microphone recording. Pause and Resume
// are no-ops unless currently recording; already-buffered chunks are
// never lost. PCM exposes a raw s16le tap for level metering and live
// captioning; it is drained until Stop tears the session down.
type CaptureSession interface {
	Pause() error
	Resume() error
	// Stop finalizes buffered chunks into a single encoded clip and
	// tears down the underlying stream unconditionally.
	Stop() (domain.AudioClip, error)
	PCM() io.Reader
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// Transcriber sends a finalized clip to the speech-to-text service and
// normalizes the reply. No retries; retry policy belongs to the caller.
type Transcriber interface {
	Transcribe(ctx context.Context, clip domain.AudioClip) (domain.TranscriptionResult, error)
}

// MedicalExtractor talks to the clinical reasoning service. Analyze
// runs the general clinical analysis pass; Extract maps the same
// transcript into the structured record, optionally informed by a
// prior analysis. Both substitute empty defaults for missing top-level
// reply keys rather than failing.
type MedicalExtractor interface {
	Analyze(ctx context.Context, transcript string, pctx *domain.PatientContext) (domain.AnalysisResult, error)
	Extract(ctx context.Context, transcript string, pctx *domain.PatientContext, prior *domain.AnalysisResult) (domain.ExtractedMedicalData, error)
}

// StreamingConfig describes provider-agnostic live caption settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// CaptionSession is an active live captioning stream.
type CaptionSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Segments() <-chan domain.TranscriptionSegment
	Wait() error
	Close() error
}

// LiveCaptioner starts streaming caption sessions. Live captioning is
// best effort; its failure never fails the recording.
type LiveCaptioner interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (CaptionSession, error)
}

// TranscriptNormalizer applies deterministic text substitutions to
// final transcripts (abbreviation expansion, dictation fixes).
type TranscriptNormalizer interface {
	Apply(text string) (string, error)
}

// DocumentStore is the opaque persistence collaborator. The core
// never depends on a specific database's query language.
type DocumentStore interface {
	Save(ctx context.Context, collection string, record any) (string, error)
	Get(ctx context.Context, collection string, id string, out any) error
}

// EventSink emits pipeline state and signals to the embedding surface.
type EventSink interface {
	SessionStateChanged(status domain.SessionStatus, reason domain.SessionStateReason)
	LiveSegment(segment domain.TranscriptionSegment)
	AudioLevel(level float64)
	SessionError(code domain.ErrorCode, detail string)
}

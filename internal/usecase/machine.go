package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"medscribe/internal/audio"
	"medscribe/internal/domain"
	"medscribe/internal/ports"
)

var (
	ErrNoSession          = errors.New("no recording session")
	ErrRecordingInFlight  = errors.New("a recording is already in progress")
	ErrStageInFlight      = errors.New("a pipeline stage is already in flight")
	ErrMissingAudio       = errors.New("session has no captured audio")
	ErrMissingTranscript  = errors.New("session has no transcription yet")
	ErrInvalidStageStatus = errors.New("session status does not permit this stage")
)

// Config controls one session machine. Callbacks and options are
// explicit construction-time configuration; nothing is ambient.
type Config struct {
	Capture   ports.CaptureConfig
	Streaming ports.StreamingConfig

	MaxDuration    time.Duration
	AutoTranscribe bool
	AutoAnalyze    bool
	LiveCaptions   bool

	ChunkSize     int
	TickInterval  time.Duration
	MeterInterval time.Duration
	AudioDir      string

	OnComplete func(session domain.RecordingSession, extracted domain.ExtractedMedicalData)
	OnError    func(err error)
}

// SessionMachine owns the RecordingSession aggregate and is the only
// component allowed to mutate its status. Stage failures hold the
// session at its last successful status and are retryable.
type SessionMachine struct {
	capture     ports.AudioCapture
	transcriber ports.Transcriber
	extractor   ports.MedicalExtractor
	captioner   ports.LiveCaptioner
	normalizer  ports.TranscriptNormalizer
	events      ports.EventSink
	cfg         Config

	mu         sync.Mutex
	session    *domain.RecordingSession
	active     *activeCapture
	stage      string
	stopping   bool
	paused     bool
	patientCtx *domain.PatientContext
	extracted  *domain.ExtractedMedicalData
}

func NewSessionMachine(
	capture ports.AudioCapture,
	transcriber ports.Transcriber,
	extractor ports.MedicalExtractor,
	captioner ports.LiveCaptioner,
	normalizer ports.TranscriptNormalizer,
	events ports.EventSink,
	cfg Config,
) *SessionMachine {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = time.Hour
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MeterInterval <= 0 {
		cfg.MeterInterval = 100 * time.Millisecond
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = os.TempDir()
	}
	return &SessionMachine{
		capture:     capture,
		transcriber: transcriber,
		extractor:   extractor,
		captioner:   captioner,
		normalizer:  normalizer,
		events:      events,
		cfg:         cfg,
	}
}

// UsePatientContext attaches optional patient background forwarded to
// the reasoning service for this machine's next analysis stage.
func (m *SessionMachine) UsePatientContext(pctx *domain.PatientContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patientCtx = pctx
}

// Start constructs a new RecordingSession and begins capture. Fails
// closed: if the capture driver fails, no session is retained.
func (m *SessionMachine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return ErrRecordingInFlight
	}
	m.mu.Unlock()

	captureSession, err := m.capture.Start(ctx, m.cfg.Capture)
	if err != nil {
		m.surface(err)
		return err
	}

	session := &domain.RecordingSession{
		ID:        fmt.Sprintf("recording-%s", uuid.NewString()),
		StartTime: time.Now(),
		Status:    domain.StatusRecording,
		Segments:  []domain.TranscriptionSegment{},
	}

	active := &activeCapture{
		capture:  captureSession,
		meter:    audio.NewLevelMeter(),
		tickStop: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}

	if m.cfg.LiveCaptions && m.captioner != nil {
		captions, err := m.captioner.StartStreaming(ctx, m.cfg.Streaming)
		if err != nil {
			// Live captioning is best effort; recording proceeds.
			m.events.SessionError(domain.ErrCodeLiveCaptions, err.Error())
			m.events.SessionStateChanged(domain.StatusRecording, domain.ReasonLiveCaptionsDegraded)
		} else {
			active.captions = captions
			active.captionsDone = make(chan struct{})
		}
	}

	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		_, _ = captureSession.Stop()
		if active.captions != nil {
			_ = active.captions.Close()
		}
		return ErrRecordingInFlight
	}
	m.session = session
	m.active = active
	m.stage = ""
	m.paused = false
	m.extracted = nil
	m.mu.Unlock()

	go pumpCapture(captureSession.PCM(), active.meter, active.captions, m.cfg.ChunkSize, m.events, active.pumpDone)
	if active.captions != nil {
		go m.consumeCaptions(active.captions, active.captionsDone)
	}
	go m.runTickers(active)

	m.events.SessionStateChanged(domain.StatusRecording, domain.ReasonRecordingStarted)
	return nil
}

// Pause suspends capture and duration accounting. Idempotent.
func (m *SessionMachine) Pause() error {
	m.mu.Lock()
	active := m.active
	if active == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.paused = true
	m.mu.Unlock()
	return active.capture.Pause()
}

// Resume continues capture after Pause. Idempotent.
func (m *SessionMachine) Resume() error {
	m.mu.Lock()
	active := m.active
	if active == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.paused = false
	m.mu.Unlock()
	return active.capture.Resume()
}

// Stop finalizes capture into the session and advances it to stopped.
// When configured for automatic transcription the next stage runs
// immediately.
func (m *SessionMachine) Stop(ctx context.Context) error {
	return m.stopWithReason(ctx, domain.ReasonRecordingStopped)
}

func (m *SessionMachine) stopWithReason(ctx context.Context, reason domain.SessionStateReason) error {
	m.mu.Lock()
	active := m.active
	session := m.session
	if active == nil || session == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	// A caller-invoked Stop can race the forced max-duration stop;
	// only one of them tears the capture down.
	if m.stopping {
		m.mu.Unlock()
		return ErrStageInFlight
	}
	m.stopping = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.stopping = false
		m.mu.Unlock()
	}()

	active.stopTickers()

	// The recorder keeps flushing PCM while it shuts down; the caption
	// stream must stay open until the pump has drained the tap.
	clip, err := active.capture.Stop()
	if err != nil && len(clip.Data) == 0 {
		// Capture is torn down but nothing was recorded; the caller
		// may retry Stop, which returns the driver's cached result.
		m.surface(err)
		return err
	}
	if err != nil {
		m.events.SessionError(domain.ErrCodeDeviceUnavailable, "recorder did not stop cleanly")
	}
	<-active.pumpDone

	if active.captions != nil {
		_ = active.captions.CloseSend()
		if waitErr := active.captions.Wait(); waitErr != nil {
			m.events.SessionError(domain.ErrCodeLiveCaptions, waitErr.Error())
		}
		_ = active.captions.Close()
		<-active.captionsDone
	}

	audioPath := filepath.Join(m.cfg.AudioDir, fmt.Sprintf("%s%s", session.ID, extensionFor(clip.MimeType)))
	if err := os.WriteFile(audioPath, clip.Data, 0o600); err != nil {
		writeErr := domain.CaptureError(domain.ErrCodePersistence, "failed to persist audio clip", err)
		m.surface(writeErr)
		return writeErr
	}

	m.mu.Lock()
	now := time.Now()
	session.EndTime = &now
	session.AudioBlob = clip.Data
	session.AudioPath = audioPath
	session.MimeType = clip.MimeType
	session.Status = domain.StatusStopped
	m.active = nil
	m.paused = false
	m.mu.Unlock()

	m.events.SessionStateChanged(domain.StatusStopped, reason)

	if m.cfg.AutoTranscribe {
		return m.Transcribe(ctx)
	}
	return nil
}

// Transcribe packages the captured clip for the speech-to-text
// adapter. Requires a stopped session with audio; on failure the
// session stays at stopped and the call is retryable.
func (m *SessionMachine) Transcribe(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	if session == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	if m.stage != "" {
		m.mu.Unlock()
		return ErrStageInFlight
	}
	if !session.Status.CanAdvance(domain.StatusTranscribing) {
		m.mu.Unlock()
		return domain.TranscriptionError(domain.ErrCodePrecondition,
			fmt.Sprintf("cannot transcribe a session in status %q", session.Status), ErrInvalidStageStatus)
	}
	if len(session.AudioBlob) == 0 {
		m.mu.Unlock()
		return ErrMissingAudio
	}
	clip := domain.AudioClip{Data: session.AudioBlob, MimeType: session.MimeType}
	m.stage = stageTranscribe
	session.Status = domain.StatusTranscribing
	m.mu.Unlock()

	m.events.SessionStateChanged(domain.StatusTranscribing, domain.ReasonTranscribing)

	result, err := m.transcriber.Transcribe(ctx, clip)
	if err != nil {
		m.mu.Lock()
		session.Status = domain.StatusStopped
		m.stage = ""
		m.mu.Unlock()
		m.events.SessionError(errorCode(err), err.Error())
		m.events.SessionStateChanged(domain.StatusStopped, domain.ReasonTranscriptionFailed)
		m.surface(err)
		return err
	}

	if m.normalizer != nil {
		result = m.normalizeTranscript(result)
	}

	m.mu.Lock()
	session.Transcription = &result
	session.Segments = append([]domain.TranscriptionSegment(nil), result.Segments...)
	m.stage = ""
	m.mu.Unlock()

	m.events.SessionStateChanged(domain.StatusTranscribing, domain.ReasonTranscriptReady)

	if m.cfg.AutoAnalyze {
		return m.Analyze(ctx)
	}

	m.mu.Lock()
	session.Status = domain.StatusCompleted
	m.mu.Unlock()
	m.events.SessionStateChanged(domain.StatusCompleted, domain.ReasonSessionCompleted)
	m.complete()
	return nil
}

// Analyze runs the clinical analysis and structured extraction passes.
// Requires a completed transcription; partial results are never kept —
// on failure the session stays at transcribing and is retryable.
func (m *SessionMachine) Analyze(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	if session == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	if m.stage != "" {
		m.mu.Unlock()
		return ErrStageInFlight
	}
	if session.Transcription == nil {
		m.mu.Unlock()
		return ErrMissingTranscript
	}
	if !session.Status.CanAdvance(domain.StatusAnalyzing) {
		m.mu.Unlock()
		return domain.ExtractionError(domain.ErrCodePrecondition,
			fmt.Sprintf("cannot analyze a session in status %q", session.Status), ErrInvalidStageStatus)
	}
	transcript := session.Transcription.Text
	pctx := m.patientCtx
	m.stage = stageAnalyze
	session.Status = domain.StatusAnalyzing
	m.mu.Unlock()

	m.events.SessionStateChanged(domain.StatusAnalyzing, domain.ReasonAnalyzing)

	analysis, err := m.extractor.Analyze(ctx, transcript, pctx)
	var extracted domain.ExtractedMedicalData
	if err == nil {
		extracted, err = m.extractor.Extract(ctx, transcript, pctx, &analysis)
	}
	if err != nil {
		m.mu.Lock()
		session.Status = domain.StatusTranscribing
		m.stage = ""
		m.mu.Unlock()
		m.events.SessionError(errorCode(err), err.Error())
		m.events.SessionStateChanged(domain.StatusTranscribing, domain.ReasonAnalysisFailed)
		m.surface(err)
		return err
	}

	m.mu.Lock()
	session.Analysis = &analysis
	m.extracted = &extracted
	session.Status = domain.StatusCompleted
	m.stage = ""
	m.mu.Unlock()

	m.events.SessionStateChanged(domain.StatusCompleted, domain.ReasonSessionCompleted)
	m.complete()
	return nil
}

// Snapshot returns an immutable copy of the current session.
func (m *SessionMachine) Snapshot() (domain.RecordingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.RecordingSession{}, false
	}
	return m.session.Clone(), true
}

// Extracted returns the structured record produced by the last
// successful analysis stage.
func (m *SessionMachine) Extracted() (domain.ExtractedMedicalData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extracted == nil {
		return domain.ExtractedMedicalData{}, false
	}
	return *m.extracted, true
}

const (
	stageTranscribe = "transcribe"
	stageAnalyze    = "analyze"
)

func (m *SessionMachine) normalizeTranscript(result domain.TranscriptionResult) domain.TranscriptionResult {
	text, err := m.normalizer.Apply(result.Text)
	if err != nil {
		// Normalization never blocks the pipeline; keep the raw text.
		m.events.SessionError(domain.ErrCodeInvalidInput, fmt.Sprintf("transcript normalization failed: %v", err))
		return result
	}
	result.Text = text
	for i := range result.Segments {
		if normalized, err := m.normalizer.Apply(result.Segments[i].Text); err == nil {
			result.Segments[i].Text = normalized
		}
	}
	return result
}

func (m *SessionMachine) runTickers(active *activeCapture) {
	duration := time.NewTicker(m.cfg.TickInterval)
	meter := time.NewTicker(m.cfg.MeterInterval)
	defer duration.Stop()
	defer meter.Stop()

	for {
		select {
		case <-active.tickStop:
			m.events.AudioLevel(0)
			return
		case <-duration.C:
			m.handleTick()
		case <-meter.C:
			m.emitLevel(active)
		}
	}
}

// handleTick advances captured-audio duration by one second while
// recording and unpaused, and forces Stop at the configured ceiling.
func (m *SessionMachine) handleTick() {
	m.mu.Lock()
	session := m.session
	if session == nil || m.active == nil || m.paused || session.Status != domain.StatusRecording {
		m.mu.Unlock()
		return
	}
	session.Duration++
	limitReached := session.Duration >= int(m.cfg.MaxDuration/time.Second)
	m.mu.Unlock()

	if limitReached {
		err := m.stopWithReason(context.Background(), domain.ReasonMaxDurationReached)
		if err != nil && !errors.Is(err, ErrNoSession) && !errors.Is(err, ErrStageInFlight) {
			m.surface(err)
		}
	}
}

func (m *SessionMachine) emitLevel(active *activeCapture) {
	m.mu.Lock()
	paused := m.paused || m.active == nil
	m.mu.Unlock()

	if paused {
		m.events.AudioLevel(0)
		return
	}
	m.events.AudioLevel(active.meter.Snapshot())
}

func (m *SessionMachine) consumeCaptions(captions ports.CaptionSession, done chan struct{}) {
	defer close(done)
	for segment := range captions.Segments() {
		segment.IsLive = true

		m.mu.Lock()
		if m.session != nil && m.session.Status == domain.StatusRecording {
			m.session.Segments = append(m.session.Segments, segment)
		}
		m.mu.Unlock()

		m.events.LiveSegment(segment)
	}
}

func (m *SessionMachine) complete() {
	if m.cfg.OnComplete == nil {
		return
	}
	session, ok := m.Snapshot()
	if !ok {
		return
	}
	extracted, _ := m.Extracted()
	m.cfg.OnComplete(session, extracted)
}

func (m *SessionMachine) surface(err error) {
	if m.cfg.OnError != nil {
		m.cfg.OnError(err)
	}
}

// errorCode recovers the stage error's own code so sink consumers see
// malformed_response, invalid_input and friends rather than a blanket
// upstream_failure.
func errorCode(err error) domain.ErrorCode {
	var stage *domain.StageError
	if errors.As(err, &stage) {
		return stage.Code
	}
	return domain.ErrCodeUpstreamFailure
}

func extensionFor(mimeType string) string {
	if mimeType == audio.MimeMP4 {
		return ".m4a"
	}
	return ".webm"
}

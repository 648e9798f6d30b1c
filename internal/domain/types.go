package domain

import "time"

// SessionStatus models the recording pipeline lifecycle. It advances
// monotonically; a failed stage holds the session at its last
// successful status so the caller can retry.
type SessionStatus string

const (
	StatusRecording    SessionStatus = "recording"
	StatusStopped      SessionStatus = "stopped"
	StatusTranscribing SessionStatus = "transcribing"
	StatusAnalyzing    SessionStatus = "analyzing"
	StatusCompleted    SessionStatus = "completed"
)

// statusTransitions is the directed lifecycle graph. Transcribing can
// complete directly when no analysis stage is configured; every other
// edge advances one stage at a time.
var statusTransitions = map[SessionStatus][]SessionStatus{
	StatusRecording:    {StatusStopped},
	StatusStopped:      {StatusTranscribing},
	StatusTranscribing: {StatusAnalyzing, StatusCompleted},
	StatusAnalyzing:    {StatusCompleted},
}

// CanAdvance reports whether moving from s to next follows the
// lifecycle graph. Regressions are never allowed.
func (s SessionStatus) CanAdvance(next SessionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	ReasonRecordingStarted     SessionStateReason = "recording_started"
	ReasonRecordingStopped     SessionStateReason = "recording_stopped"
	ReasonMaxDurationReached   SessionStateReason = "max_duration_reached"
	ReasonTranscribing         SessionStateReason = "transcribing"
	ReasonTranscriptReady      SessionStateReason = "transcript_ready"
	ReasonTranscriptionFailed  SessionStateReason = "transcription_failed"
	ReasonAnalyzing            SessionStateReason = "analyzing"
	ReasonAnalysisFailed       SessionStateReason = "analysis_failed"
	ReasonSessionCompleted     SessionStateReason = "session_completed"
	ReasonLiveCaptionsDegraded SessionStateReason = "live_captions_degraded"
)

// Speaker labels one attributed span of transcribed speech. Labeling
// is whatever the upstream service returned; no local diarization.
type Speaker string

const (
	SpeakerPatient  Speaker = "patient"
	SpeakerProvider Speaker = "provider"
	SpeakerUnknown  Speaker = "unknown"
)

// TranscriptionSegment is one timestamped span of transcribed speech.
// IsLive marks interim captions streamed during recording; live
// segments are replaced wholesale when the final transcription lands.
type TranscriptionSegment struct {
	ID         string  `json:"id" bson:"id"`
	Speaker    Speaker `json:"speaker" bson:"speaker"`
	Timestamp  float64 `json:"timestamp" bson:"timestamp"`
	Text       string  `json:"text" bson:"text"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	IsLive     bool    `json:"isLive,omitempty" bson:"isLive,omitempty"`
}

// TranscriptionResult is the normalized reply of the speech-to-text
// service: aggregate text plus the ordered segment list.
type TranscriptionResult struct {
	Text       string                 `json:"text" bson:"text"`
	Segments   []TranscriptionSegment `json:"segments" bson:"segments"`
	Confidence float64                `json:"confidence" bson:"confidence"`
	Duration   float64                `json:"duration" bson:"duration"`
}

// AudioClip is a finalized encoded recording plus the container format
// actually negotiated (which may differ from the one requested).
type AudioClip struct {
	Data     []byte
	MimeType string
}

// RecordingSession is the central aggregate of one end-to-end
// recording-to-analysis attempt. While active it is owned exclusively
// by the session machine; callers only ever see copies.
type RecordingSession struct {
	ID        string        `json:"id" bson:"_id"`
	StartTime time.Time     `json:"startTime" bson:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Duration  int           `json:"duration" bson:"duration"` // seconds of captured audio, not wall clock
	Status    SessionStatus `json:"status" bson:"status"`

	// AudioBlob and AudioPath are present together or absent together.
	AudioBlob []byte `json:"-" bson:"-"`
	AudioPath string `json:"audioPath,omitempty" bson:"audioPath,omitempty"`
	MimeType  string `json:"mimeType,omitempty" bson:"mimeType,omitempty"`

	Segments      []TranscriptionSegment `json:"segments" bson:"segments"`
	Transcription *TranscriptionResult   `json:"transcription,omitempty" bson:"transcription,omitempty"`
	Analysis      *AnalysisResult        `json:"analysis,omitempty" bson:"analysis,omitempty"`
}

// Clone returns a copy safe to hand to callers: slices and nested
// results are duplicated so the machine can keep mutating its own
// instance.
func (s RecordingSession) Clone() RecordingSession {
	out := s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.AudioBlob != nil {
		out.AudioBlob = append([]byte(nil), s.AudioBlob...)
	}
	if s.Segments != nil {
		out.Segments = append([]TranscriptionSegment(nil), s.Segments...)
	}
	if s.Transcription != nil {
		tr := *s.Transcription
		tr.Segments = append([]TranscriptionSegment(nil), s.Transcription.Segments...)
		out.Transcription = &tr
	}
	if s.Analysis != nil {
		an := *s.Analysis
		out.Analysis = &an
	}
	return out
}

// PatientContext is optional free-text background forwarded to the
// reasoning service alongside a transcript.
type PatientContext struct {
	Age            int    `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	MedicalHistory string `json:"medicalHistory,omitempty"`
	Medications    string `json:"medications,omitempty"`
	Allergies      string `json:"allergies,omitempty"`
}

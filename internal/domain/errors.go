package domain

import "fmt"

// ErrorCode identifies pipeline stage failures.
type ErrorCode string

const (
	ErrCodePermissionDenied   ErrorCode = "permission_denied"
	ErrCodeDeviceUnavailable  ErrorCode = "device_unavailable"
	ErrCodeEncoderUnsupported ErrorCode = "encoder_unsupported"
	ErrCodeUpstreamFailure    ErrorCode = "upstream_failure"
	ErrCodeMalformedResponse  ErrorCode = "malformed_response"
	ErrCodeInvalidInput       ErrorCode = "invalid_input"
	ErrCodePrecondition       ErrorCode = "precondition_failed"
	ErrCodeLiveCaptions       ErrorCode = "live_captions"
	ErrCodePersistence        ErrorCode = "persistence"
)

// StageError is the caller-visible form of a stage failure: which
// stage failed, a machine-matchable code, and a human-readable
// message. The wrapped cause, when present, carries upstream detail.
type StageError struct {
	Stage   string
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error { return e.Cause }

// CaptureError fails the current start attempt; no session is created.
func CaptureError(code ErrorCode, message string, cause error) *StageError {
	return &StageError{Stage: "capture", Code: code, Message: message, Cause: cause}
}

// TranscriptionError leaves the session at stopped; retryable.
func TranscriptionError(code ErrorCode, message string, cause error) *StageError {
	return &StageError{Stage: "transcription", Code: code, Message: message, Cause: cause}
}

// ExtractionError leaves the session at transcribing; retryable.
func ExtractionError(code ErrorCode, message string, cause error) *StageError {
	return &StageError{Stage: "extraction", Code: code, Message: message, Cause: cause}
}

// ReconciliationError covers malformed extracted-data input and
// persistence failures while committing records.
func ReconciliationError(code ErrorCode, message string, cause error) *StageError {
	return &StageError{Stage: "reconciliation", Code: code, Message: message, Cause: cause}
}

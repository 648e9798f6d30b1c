package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"medscribe/internal/domain"
	"medscribe/internal/ports"
)

const (
	MimeMP4  = "audio/mp4"
	MimeWebM = "audio/webm"
)

// Recorder captures microphone audio through an ffmpeg subprocess.
// The encoded container streams to stdout and is buffered in chunks;
// a raw s16le tap streams on a second pipe for level metering and
// live captioning.
type Recorder struct {
	command string
}

func NewRecorder(command string) *Recorder {
	if command == "" {
		command = "ffmpeg"
	}
	return &Recorder{command: command}
}

// Start negotiates an encoding and begins chunked buffering. If the
// platform rejects the primary container's encoder, the fallback codec
// is tried before giving up.
func (r *Recorder) Start(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.PrimaryMime == "" {
		cfg.PrimaryMime = MimeMP4
	}
	if cfg.FallbackMime == "" {
		cfg.FallbackMime = MimeWebM
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 1000
	}

	session, err := r.startWithMime(ctx, cfg, cfg.PrimaryMime)
	if err == nil {
		return session, nil
	}

	var stage *domain.StageError
	if errors.As(err, &stage) && stage.Code == domain.ErrCodeEncoderUnsupported && cfg.FallbackMime != cfg.PrimaryMime {
		return r.startWithMime(ctx, cfg, cfg.FallbackMime)
	}
	return nil, err
}

func (r *Recorder) startWithMime(ctx context.Context, cfg ports.CaptureConfig, mimeType string) (*captureSession, error) {
	args, err := buildCaptureArgs(cfg, mimeType)
	if err != nil {
		return nil, err
	}

	pcmRead, pcmWrite, err := os.Pipe()
	if err != nil {
		return nil, domain.CaptureError(domain.ErrCodeDeviceUnavailable, "failed to create pcm tap pipe", err)
	}

	cmd := exec.CommandContext(ctx, r.command, args...)
	cmd.ExtraFiles = []*os.File{pcmWrite}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		pcmRead.Close()
		pcmWrite.Close()
		return nil, domain.CaptureError(domain.ErrCodeDeviceUnavailable, "failed to create recorder pipe", err)
	}
	if err := cmd.Start(); err != nil {
		pcmRead.Close()
		pcmWrite.Close()
		return nil, domain.CaptureError(domain.ErrCodeDeviceUnavailable, "failed to start recorder", err)
	}
	// The child holds its own copy of the tap's write end.
	pcmWrite.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		pcmRead.Close()
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(250 * time.Millisecond):
	}

	session := &captureSession{
		stdout:   stdout,
		stderr:   &stderr,
		pcm:      pcmRead,
		process:  cmd.Process,
		waitErr:  waitErr,
		mimeType: mimeType,
		buffer:   newChunkBuffer(time.Duration(cfg.FlushInterval) * time.Millisecond),
	}
	session.collectDone = make(chan struct{})
	go session.collect()
	return session, nil
}

// classifyStartFailure maps an early recorder exit onto the capture
// error taxonomy using the process's stderr output.
func classifyStartFailure(waitErr error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lowered := strings.ToLower(detail)
	switch {
	case contains(lowered, "unknown encoder", "encoder not found", "unsupported codec", "no such encoder"):
		return domain.CaptureError(domain.ErrCodeEncoderUnsupported, "encoder rejected by platform", fmt.Errorf("%s", detail))
	case contains(lowered, "permission denied", "operation not permitted", "access denied"):
		return domain.CaptureError(domain.ErrCodePermissionDenied, "microphone access denied", fmt.Errorf("%s", detail))
	default:
		cause := waitErr
		if detail != "" {
			cause = fmt.Errorf("%w: %s", waitErr, detail)
		}
		return domain.CaptureError(domain.ErrCodeDeviceUnavailable, "recorder exited before capture started", cause)
	}
}

func buildCaptureArgs(cfg ports.CaptureConfig, mimeType string) ([]string, error) {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
	}

	// Encoded container to stdout, with echo cancellation and noise
	// suppression on the capture path.
	switch mimeType {
	case MimeMP4:
		args = append(args,
			"-map", "0:a",
			"-af", "aecho=0.8:0.88:6:0.4,afftdn",
			"-ac", strconv.Itoa(cfg.Channels),
			"-ar", strconv.Itoa(cfg.SampleRate),
			"-c:a", "aac",
			"-movflags", "frag_keyframe+empty_moov",
			"-f", "mp4",
			"pipe:1",
		)
	case MimeWebM:
		args = append(args,
			"-map", "0:a",
			"-af", "aecho=0.8:0.88:6:0.4,afftdn",
			"-ac", strconv.Itoa(cfg.Channels),
			"-ar", strconv.Itoa(cfg.SampleRate),
			"-c:a", "libopus",
			"-f", "webm",
			"pipe:1",
		)
	default:
		return nil, domain.CaptureError(domain.ErrCodeEncoderUnsupported, fmt.Sprintf("unsupported container %q", mimeType), nil)
	}

	// Raw tap for metering and live captions on fd 3.
	args = append(args,
		"-map", "0:a",
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"pipe:3",
	)
	return args, nil
}

type captureSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer
	pcm    *os.File

	process *os.Process
	waitErr <-chan error

	mimeType string
	buffer   *chunkBuffer

	collectDone chan struct{}

	stateMu sync.Mutex
	paused  bool
	stopped bool

	stopOnce sync.Once
	stopClip domain.AudioClip
	stopErr  error
}

func (s *captureSession) collect() {
	defer close(s.collectDone)
	buf := make([]byte, 4096)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			s.buffer.Append(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// Pause suspends chunk buffering. No-op unless currently recording;
// already-buffered data is kept.
func (s *captureSession) Pause() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.stopped || s.paused {
		return nil
	}
	if err := s.process.Signal(syscall.SIGSTOP); err != nil {
		return domain.CaptureError(domain.ErrCodeDeviceUnavailable, "failed to pause recorder", err)
	}
	s.paused = true
	return nil
}

// Resume continues buffering after Pause. No-op when not paused.
func (s *captureSession) Resume() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.stopped || !s.paused {
		return nil
	}
	if err := s.process.Signal(syscall.SIGCONT); err != nil {
		return domain.CaptureError(domain.ErrCodeDeviceUnavailable, "failed to resume recorder", err)
	}
	s.paused = false
	return nil
}

func (s *captureSession) PCM() io.Reader {
	return s.pcm
}

// Stop finalizes buffered chunks into one encoded clip and tears down
// the subprocess and the tap, error path included.
func (s *captureSession) Stop() (domain.AudioClip, error) {
	s.stopOnce.Do(func() {
		s.stateMu.Lock()
		if s.paused {
			_ = s.process.Signal(syscall.SIGCONT)
			s.paused = false
		}
		s.stopped = true
		s.stateMu.Unlock()

		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeExitErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			_ = s.process.Kill()
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeExitErr(err)
			}
		}

		<-s.collectDone
		_ = s.stdout.Close()
		_ = s.pcm.Close()

		data := s.buffer.Bytes()
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = domain.CaptureError(domain.ErrCodeDeviceUnavailable, "recorder stop failed",
				fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String())))
		}
		s.stopClip = domain.AudioClip{Data: data, MimeType: s.mimeType}
	})

	return s.stopClip, s.stopErr
}

// normalizeExitErr ignores the nonzero exit that follows an interrupt.
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func contains(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

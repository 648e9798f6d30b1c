package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"medscribe/internal/domain"
	"medscribe/internal/ports"
)

func TestRecorderStartStopProducesClip(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'encoded-audio'\nsleep 2\n")
	recorder := NewRecorder(script)

	session, err := recorder.Start(context.Background(), ports.CaptureConfig{FlushInterval: 10})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	clip, err := session.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if !strings.Contains(string(clip.Data), "encoded-audio") {
		t.Fatalf("unexpected clip contents: %q", string(clip.Data))
	}
	if clip.MimeType != MimeMP4 {
		t.Fatalf("unexpected mime type: %q", clip.MimeType)
	}
}

func TestRecorderStopIsIdempotent(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'abc'\nsleep 2\n")
	recorder := NewRecorder(script)

	session, err := recorder.Start(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	first, err := session.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	second, err := session.Stop()
	if err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if string(first.Data) != string(second.Data) {
		t.Fatalf("expected identical clip on repeated stop")
	}
}

func TestRecorderPauseResumeIdempotent(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nsleep 5\n")
	recorder := NewRecorder(script)

	session, err := recorder.Start(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Stop()

	if err := session.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := session.Pause(); err != nil {
		t.Fatalf("second pause should be a no-op: %v", err)
	}
	if err := session.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if err := session.Resume(); err != nil {
		t.Fatalf("resume when not paused should be a no-op: %v", err)
	}
}

func TestRecorderEncoderFallback(t *testing.T) {
	t.Parallel()

	// The fake recorder rejects the aac encoder and accepts opus.
	script := writeScript(t, "picky.sh", `#!/usr/bin/env bash
for arg in "$@"; do
  if [ "$arg" = "aac" ]; then
    echo "Unknown encoder 'aac'" 1>&2
    exit 1
  fi
done
printf 'opus-audio'
sleep 2
`)
	recorder := NewRecorder(script)

	session, err := recorder.Start(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	clip, err := session.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if clip.MimeType != MimeWebM {
		t.Fatalf("expected fallback mime, got %q", clip.MimeType)
	}
}

func TestRecorderStartPermissionDenied(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "denied.sh", "#!/usr/bin/env bash\necho 'default: Permission denied' 1>&2\nexit 1\n")
	recorder := NewRecorder(script)

	_, err := recorder.Start(context.Background(), ports.CaptureConfig{})
	if err == nil {
		t.Fatalf("expected permission error")
	}

	var stage *domain.StageError
	if !errors.As(err, &stage) || stage.Code != domain.ErrCodePermissionDenied {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorderStartDeviceUnavailable(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "missing.sh", "#!/usr/bin/env bash\necho 'No such device' 1>&2\nexit 1\n")
	recorder := NewRecorder(script)

	_, err := recorder.Start(context.Background(), ports.CaptureConfig{})
	if err == nil {
		t.Fatalf("expected device error")
	}

	var stage *domain.StageError
	if !errors.As(err, &stage) || stage.Code != domain.ErrCodeDeviceUnavailable {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeExitErrIgnoresExitError(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-lc", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeExitErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func TestBuildCaptureArgsRejectsUnknownContainer(t *testing.T) {
	t.Parallel()

	_, err := buildCaptureArgs(ports.CaptureConfig{SampleRate: 16000, Channels: 1, InputFormat: "pulse", InputDevice: "default"}, "audio/flac")
	if err == nil {
		t.Fatalf("expected unsupported container error")
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

package usecase

import (
	"errors"
	"io"
	"os"
	"sync"

	"medscribe/internal/audio"
	"medscribe/internal/domain"
	"medscribe/internal/ports"
)

// activeCapture bundles the moving parts of a live recording: the
// driver session, the shared level meter, and the optional caption
// stream. Tickers stop exactly once even when Stop races a forced
// max-duration stop.
type activeCapture struct {
	capture      ports.CaptureSession
	meter        *audio.LevelMeter
	captions     ports.CaptionSession
	captionsDone chan struct{}
	tickStop     chan struct{}
	pumpDone     chan struct{}
	tickOnce     sync.Once
}

func (a *activeCapture) stopTickers() {
	a.tickOnce.Do(func() { close(a.tickStop) })
}

// pumpCapture drains the raw PCM tap, feeding every chunk to the level
// meter and, when live captioning is up, to the caption stream. The
// pump exits when the tap reaches EOF after the driver stops.
func pumpCapture(pcm io.Reader, meter *audio.LevelMeter, captions ports.CaptionSession, chunkSize int, events ports.EventSink, done chan struct{}) {
	defer close(done)

	buf := make([]byte, chunkSize)
	captionsUp := captions != nil
	for {
		n, err := pcm.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			meter.Feed(chunk)
			if captionsUp {
				if sendErr := captions.SendAudio(chunk); sendErr != nil {
					// Caption transport failures degrade to meter-only.
					captionsUp = false
					events.SessionError(domain.ErrCodeLiveCaptions, sendErr.Error())
				}
			}
		}
		if err != nil {
			// The tap is an os pipe; reading it after Stop tears the
			// recorder down yields os.ErrClosed.
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
				events.SessionError(domain.ErrCodeDeviceUnavailable, err.Error())
			}
			return
		}
	}
}

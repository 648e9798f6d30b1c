package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"medscribe/internal/domain"
	"medscribe/internal/ports"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Captioner implements ports.LiveCaptioner for Deepgram.
type Captioner struct {
	cfg Config
}

func NewCaptioner(cfg Config) *Captioner {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Captioner{cfg: cfg}
}

func (c *Captioner) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.CaptionSession, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("live caption API key is not configured")
	}

	wsURL, err := buildListenURL(c.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+c.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to caption websocket: %w", err)
	}

	session := &captionSession{
		conn:     conn,
		segments: make(chan domain.TranscriptionSegment, 64),
		audio:    make(chan []byte, 32),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.segments)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

type captionSession struct {
	conn *websocket.Conn

	segments chan domain.TranscriptionSegment
	audio    chan []byte
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *captionSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("caption session closed")
	}
}

func (s *captionSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *captionSession) Segments() <-chan domain.TranscriptionSegment {
	return s.segments
}

func (s *captionSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *captionSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *captionSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *captionSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *captionSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.setErr(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *captionSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read caption event: %w", err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "caption service returned an unknown error"
			}
			s.setErr(errors.New(message))
			return
		}

		// Interim results are dropped; only finalized phrases become
		// caption segments so the transcript list never rewrites itself.
		if !response.IsFinal && !response.SpeechFinal {
			continue
		}

		segment, ok := mapSegment(response)
		if !ok {
			continue
		}
		s.emit(segment)
	}
}

func (s *captionSession) emit(segment domain.TranscriptionSegment) {
	select {
	case s.segments <- segment:
	case <-s.done:
	default:
	}
}

type listenResponse struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`

	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func mapSegment(response listenResponse) (domain.TranscriptionSegment, bool) {
	if len(response.Channel.Alternatives) == 0 {
		return domain.TranscriptionSegment{}, false
	}
	alternative := response.Channel.Alternatives[0]
	text := strings.TrimSpace(alternative.Transcript)
	if text == "" {
		return domain.TranscriptionSegment{}, false
	}

	return domain.TranscriptionSegment{
		ID:         fmt.Sprintf("live-%s", uuid.NewString()),
		Speaker:    domain.SpeakerUnknown,
		Timestamp:  response.Start,
		Text:       text,
		Confidence: alternative.Confidence,
		IsLive:     true,
	}, true
}

func buildListenURL(captionerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(captionerCfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid caption API base URL: %w", err)
	}

	query := listenURL.Query()
	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}
	query.Set("model", captionerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", streamCfg.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", streamCfg.Channels))
	query.Set("interim_results", fmt.Sprintf("%t", streamCfg.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", captionerCfg.SmartFormat))
	if captionerCfg.Language != "" {
		query.Set("language", captionerCfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

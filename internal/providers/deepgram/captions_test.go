package deepgram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"medscribe/internal/ports"
)

func TestNewCaptionerDefaults(t *testing.T) {
	t.Parallel()

	c := NewCaptioner(Config{})
	if c.cfg.APIBaseURL != "https://api.deepgram.com/v1" {
		t.Fatalf("unexpected base url: %q", c.cfg.APIBaseURL)
	}
	if c.cfg.Model != "nova-2" {
		t.Fatalf("unexpected model: %q", c.cfg.Model)
	}
}

func TestStartStreamingRequiresAPIKey(t *testing.T) {
	t.Parallel()

	c := NewCaptioner(Config{APIKey: ""})
	_, err := c.StartStreaming(context.Background(), ports.StreamingConfig{})
	if err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestBuildListenURLDefaults(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(Config{APIBaseURL: "https://api.deepgram.com/v1", Model: "nova-2"}, ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(url, "wss://api.deepgram.com/v1/listen") {
		t.Fatalf("unexpected ws url: %s", url)
	}
	if !strings.Contains(url, "encoding=linear16") {
		t.Fatalf("expected default encoding in url: %s", url)
	}
	if !strings.Contains(url, "sample_rate=16000") {
		t.Fatalf("expected default sample_rate in url: %s", url)
	}
	if !strings.Contains(url, "channels=1") {
		t.Fatalf("expected default channels in url: %s", url)
	}
}

func TestBuildListenURLWithLanguageAndSmartFormat(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(
		Config{APIBaseURL: "http://localhost:8080/v1", Model: "m", Language: "en-US", SmartFormat: true},
		ports.StreamingConfig{Encoding: "linear16", SampleRate: 8000, Channels: 2, InterimResults: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(url, "ws://localhost:8080/v1/listen") {
		t.Fatalf("unexpected ws url: %s", url)
	}
	if !strings.Contains(url, "language=en-US") {
		t.Fatalf("expected language in url: %s", url)
	}
	if !strings.Contains(url, "smart_format=true") {
		t.Fatalf("expected smart_format in url: %s", url)
	}
}

func TestBuildListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	_, err := buildListenURL(Config{APIBaseURL: ":// bad"}, ports.StreamingConfig{})
	if err == nil {
		t.Fatalf("expected invalid base url error")
	}
}

func TestMapSegment(t *testing.T) {
	t.Parallel()

	response := listenResponse{IsFinal: true, Start: 2.5}
	response.Channel.Alternatives = append(response.Channel.Alternatives, struct {
		Transcript string  "json:\"transcript\""
		Confidence float64 "json:\"confidence\""
	}{Transcript: " the patient reports chest pain ", Confidence: 0.93})

	segment, ok := mapSegment(response)
	if !ok {
		t.Fatal("expected a segment")
	}
	if segment.Text != "the patient reports chest pain" {
		t.Fatalf("unexpected text: %q", segment.Text)
	}
	if segment.Timestamp != 2.5 || segment.Confidence != 0.93 {
		t.Fatalf("unexpected segment metadata: %+v", segment)
	}
	if !segment.IsLive || segment.ID == "" {
		t.Fatalf("segment identity mapped incorrectly: %+v", segment)
	}

	if _, ok := mapSegment(listenResponse{IsFinal: true}); ok {
		t.Fatal("expected no segment without alternatives")
	}

	empty := listenResponse{IsFinal: true}
	empty.Channel.Alternatives = append(empty.Channel.Alternatives, struct {
		Transcript string  "json:\"transcript\""
		Confidence float64 "json:\"confidence\""
	}{Transcript: "   "})
	if _, ok := mapSegment(empty); ok {
		t.Fatal("expected no segment for blank transcript")
	}
}

func TestCaptionSessionSendAudioClosed(t *testing.T) {
	t.Parallel()

	s := &captionSession{sendClosed: true}
	if err := s.SendAudio([]byte("x")); err == nil {
		t.Fatalf("expected closed error")
	}
}

func TestCaptionSessionCloseSendIsIdempotent(t *testing.T) {
	t.Parallel()

	s := &captionSession{audio: make(chan []byte, 1)}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected second error: %v", err)
	}
}

func TestCaptionSessionSetErrIgnoresCloseErrors(t *testing.T) {
	t.Parallel()

	s := &captionSession{}
	s.setErr(&websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	if s.waitErr() != nil {
		t.Fatalf("expected close error to be ignored")
	}

	s.setErr(errors.New("boom"))
	if s.waitErr() == nil || s.waitErr().Error() != "boom" {
		t.Fatalf("expected non-close error to be captured")
	}
}

func TestCaptionSessionSetErrFirstWins(t *testing.T) {
	t.Parallel()

	s := &captionSession{}
	s.setErr(errors.New("first"))
	s.setErr(errors.New("second"))
	if s.waitErr() == nil || s.waitErr().Error() != "first" {
		t.Fatalf("expected first error to win")
	}
}

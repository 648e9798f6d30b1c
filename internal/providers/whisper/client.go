package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"medscribe/internal/audio"
	"medscribe/internal/domain"
)

// Config controls the batch speech-to-text endpoint.
type Config struct {
	BearerToken string
	APIBaseURL  string
	Model       string
	Language    string
	HTTPClient  *http.Client
}

// Client implements ports.Transcriber against an OpenAI-compatible
// audio transcription API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) Transcribe(ctx context.Context, clip domain.AudioClip) (domain.TranscriptionResult, error) {
	if len(clip.Data) == 0 {
		return domain.TranscriptionResult{}, domain.TranscriptionError(domain.ErrCodeInvalidInput, "cannot transcribe an empty clip", nil)
	}
	if strings.TrimSpace(c.cfg.BearerToken) == "" {
		return domain.TranscriptionResult{}, errors.New("speech-to-text token is not configured")
	}

	body, contentType, err := buildMultipartBody(clip, c.cfg.Model, c.cfg.Language)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}

	endpoint := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TranscriptionResult{}, domain.TranscriptionError(domain.ErrCodeUpstreamFailure, "transcription request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return domain.TranscriptionResult{}, domain.TranscriptionError(domain.ErrCodeUpstreamFailure, "failed to read transcription response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.TranscriptionResult{}, domain.TranscriptionError(
			domain.ErrCodeUpstreamFailure,
			fmt.Sprintf("transcription endpoint returned %d: %s", resp.StatusCode, truncate(payload, 256)),
			nil,
		)
	}

	var reply transcriptionReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return domain.TranscriptionResult{}, domain.TranscriptionError(domain.ErrCodeMalformedResponse, "transcription response is not valid JSON", err)
	}

	return mapReply(reply), nil
}

// transcriptionReply mirrors the verbose_json response shape. Missing
// fields decode to zero values and are defaulted during mapping.
type transcriptionReply struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID         int     `json:"id"`
		Start      float64 `json:"start"`
		Text       string  `json:"text"`
		Speaker    string  `json:"speaker"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

func mapReply(reply transcriptionReply) domain.TranscriptionResult {
	result := domain.TranscriptionResult{
		Text:     strings.TrimSpace(reply.Text),
		Duration: reply.Duration,
		Segments: make([]domain.TranscriptionSegment, 0, len(reply.Segments)),
	}

	var confidenceSum float64
	for _, segment := range reply.Segments {
		mapped := domain.TranscriptionSegment{
			ID:         fmt.Sprintf("segment-%s", uuid.NewString()),
			Speaker:    mapSpeaker(segment.Speaker),
			Timestamp:  segment.Start,
			Text:       strings.TrimSpace(segment.Text),
			Confidence: segment.Confidence,
		}
		if mapped.Confidence <= 0 {
			mapped.Confidence = 1
		}
		confidenceSum += mapped.Confidence
		result.Segments = append(result.Segments, mapped)
	}

	if len(result.Segments) > 0 {
		result.Confidence = confidenceSum / float64(len(result.Segments))
	} else if result.Text != "" {
		result.Confidence = 1
	}

	if result.Text == "" && len(result.Segments) > 0 {
		texts := make([]string, 0, len(result.Segments))
		for _, segment := range result.Segments {
			texts = append(texts, segment.Text)
		}
		result.Text = strings.Join(texts, " ")
	}

	return result
}

func mapSpeaker(raw string) domain.Speaker {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "patient":
		return domain.SpeakerPatient
	case "provider", "doctor", "clinician":
		return domain.SpeakerProvider
	default:
		return domain.SpeakerUnknown
	}
}

func buildMultipartBody(clip domain.AudioClip, model string, language string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileNameFor(clip.MimeType))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write clip into multipart body: %w", err)
	}

	if err := writer.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("failed to write response_format field: %w", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, "", fmt.Errorf("failed to write language field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func fileNameFor(mimeType string) string {
	if mimeType == audio.MimeMP4 {
		return "recording.m4a"
	}
	return "recording.webm"
}

func truncate(payload []byte, limit int) string {
	text := strings.TrimSpace(string(payload))
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

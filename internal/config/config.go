package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the recording pipeline.
type Config struct {
	Speech    SpeechConfig
	Reasoning ReasoningConfig
	Audio     AudioConfig
	Session   SessionConfig
	Store     StoreConfig
	Rules     RulesConfig
}

// SpeechConfig covers the speech-to-text service, both the batch
// transcription endpoint and the live caption stream.
type SpeechConfig struct {
	BearerToken  string
	APIBaseURL   string
	Model        string
	Language     string
	LiveBaseURL  string
	LiveCaptions bool
}

// ReasoningConfig covers the clinical reasoning service.
type ReasoningConfig struct {
	BearerToken     string
	APIBaseURL      string
	AnalysisModel   string
	ExtractionModel string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type SessionConfig struct {
	MaxDuration    time.Duration
	AutoTranscribe bool
	AutoAnalyze    bool
	ChunkSize      int
	FlushInterval  time.Duration
}

type StoreConfig struct {
	MongoURI string
	Database string
}

type RulesConfig struct {
	Path string
}

// Load resolves configuration from environment variables and sensible
// defaults.
func Load() (Config, error) {
	cfg := Config{
		Speech: SpeechConfig{
			BearerToken:  firstNonEmpty(os.Getenv("MEDSCRIBE_SPEECH_TOKEN"), os.Getenv("MEDSCRIBE_API_TOKEN")),
			APIBaseURL:   envOrDefault("MEDSCRIBE_SPEECH_API_BASE", "https://api.openai.com/v1"),
			Model:        envOrDefault("MEDSCRIBE_SPEECH_MODEL", "whisper-1"),
			Language:     strings.TrimSpace(os.Getenv("MEDSCRIBE_SPEECH_LANGUAGE")),
			LiveBaseURL:  envOrDefault("MEDSCRIBE_LIVE_API_BASE", "https://api.deepgram.com/v1"),
			LiveCaptions: envOrDefaultBool("MEDSCRIBE_LIVE_CAPTIONS", false),
		},
		Reasoning: ReasoningConfig{
			BearerToken:     firstNonEmpty(os.Getenv("MEDSCRIBE_REASONING_TOKEN"), os.Getenv("MEDSCRIBE_API_TOKEN")),
			APIBaseURL:      envOrDefault("MEDSCRIBE_REASONING_API_BASE", "https://api.openai.com/v1"),
			AnalysisModel:   envOrDefault("MEDSCRIBE_ANALYSIS_MODEL", "gpt-4o"),
			ExtractionModel: envOrDefault("MEDSCRIBE_EXTRACTION_MODEL", "gpt-4o"),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("MEDSCRIBE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("MEDSCRIBE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("MEDSCRIBE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("MEDSCRIBE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("MEDSCRIBE_CHANNELS", 1),
		},
		Session: SessionConfig{
			MaxDuration:    time.Duration(envOrDefaultInt("MEDSCRIBE_MAX_DURATION_SECONDS", 3600)) * time.Second,
			AutoTranscribe: envOrDefaultBool("MEDSCRIBE_AUTO_TRANSCRIBE", true),
			AutoAnalyze:    envOrDefaultBool("MEDSCRIBE_AUTO_ANALYZE", true),
			ChunkSize:      envOrDefaultInt("MEDSCRIBE_AUDIO_CHUNK_SIZE", 4096),
			FlushInterval:  time.Duration(envOrDefaultInt("MEDSCRIBE_FLUSH_INTERVAL_MS", 1000)) * time.Millisecond,
		},
		Store: StoreConfig{
			MongoURI: strings.TrimSpace(os.Getenv("MEDSCRIBE_MONGO_URI")),
			Database: envOrDefault("MEDSCRIBE_MONGO_DATABASE", "medscribe"),
		},
		Rules: RulesConfig{
			Path: strings.TrimSpace(os.Getenv("MEDSCRIBE_RULES_FILE")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.MaxDuration <= 0 {
		cfg.Session.MaxDuration = time.Hour
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.FlushInterval <= 0 {
		cfg.Session.FlushInterval = time.Second
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

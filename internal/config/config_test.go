package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"MEDSCRIBE_SPEECH_API_BASE", "MEDSCRIBE_SPEECH_MODEL",
		"MEDSCRIBE_MAX_DURATION_SECONDS", "MEDSCRIBE_AUTO_TRANSCRIBE",
		"MEDSCRIBE_AUTO_ANALYZE", "MEDSCRIBE_SAMPLE_RATE", "MEDSCRIBE_CHANNELS",
		"MEDSCRIBE_AUDIO_CHUNK_SIZE", "MEDSCRIBE_FLUSH_INTERVAL_MS",
		"MEDSCRIBE_MONGO_DATABASE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Speech.APIBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected speech base: %q", cfg.Speech.APIBaseURL)
	}
	if cfg.Speech.Model != "whisper-1" {
		t.Fatalf("unexpected speech model: %q", cfg.Speech.Model)
	}
	if cfg.Session.MaxDuration != time.Hour {
		t.Fatalf("unexpected max duration: %v", cfg.Session.MaxDuration)
	}
	if !cfg.Session.AutoTranscribe || !cfg.Session.AutoAnalyze {
		t.Fatalf("expected auto transcribe/analyze defaults")
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Store.Database != "medscribe" {
		t.Fatalf("unexpected store database: %q", cfg.Store.Database)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("MEDSCRIBE_API_TOKEN", "shared-token")
	t.Setenv("MEDSCRIBE_SPEECH_TOKEN", "speech-token")
	t.Setenv("MEDSCRIBE_MAX_DURATION_SECONDS", "120")
	t.Setenv("MEDSCRIBE_AUTO_ANALYZE", "off")
	t.Setenv("MEDSCRIBE_LIVE_CAPTIONS", "yes")
	t.Setenv("MEDSCRIBE_MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Speech.BearerToken != "speech-token" {
		t.Fatalf("expected dedicated speech token, got %q", cfg.Speech.BearerToken)
	}
	if cfg.Reasoning.BearerToken != "shared-token" {
		t.Fatalf("expected shared token fallback, got %q", cfg.Reasoning.BearerToken)
	}
	if cfg.Session.MaxDuration != 2*time.Minute {
		t.Fatalf("unexpected max duration: %v", cfg.Session.MaxDuration)
	}
	if cfg.Session.AutoAnalyze {
		t.Fatalf("expected auto analyze disabled")
	}
	if !cfg.Speech.LiveCaptions {
		t.Fatalf("expected live captions enabled")
	}
	if cfg.Store.MongoURI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected mongo uri: %q", cfg.Store.MongoURI)
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	t.Setenv("MEDSCRIBE_SAMPLE_RATE", "-1")
	t.Setenv("MEDSCRIBE_AUDIO_CHUNK_SIZE", "10")
	t.Setenv("MEDSCRIBE_MAX_DURATION_SECONDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected sample rate clamp, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Session.ChunkSize != 4096 {
		t.Fatalf("expected chunk size clamp, got %d", cfg.Session.ChunkSize)
	}
	if cfg.Session.MaxDuration != time.Hour {
		t.Fatalf("expected max duration clamp, got %v", cfg.Session.MaxDuration)
	}
}

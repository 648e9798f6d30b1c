package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"medscribe/internal/domain"
	"medscribe/internal/store"
)

func TestBuildSuccess(t *testing.T) {
	t.Setenv("MEDSCRIBE_API_TOKEN", "test-token")
	t.Setenv("MEDSCRIBE_MONGO_URI", "")

	services, err := Build(context.Background(), noopEventSink{}, Options{AudioDir: t.TempDir()})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close(context.Background())

	if services.Machine == nil {
		t.Fatal("expected a session machine")
	}
	if services.Committer == nil {
		t.Fatal("expected a committer")
	}
	if _, ok := services.Store.(*store.MemoryStore); !ok {
		t.Fatalf("expected the memory store without a mongo uri, got %T", services.Store)
	}
}

func TestBuildFailsOnInvalidRules(t *testing.T) {
	rulesPath := filepath.Join(t.TempDir(), "bad.rules")
	if err := os.WriteFile(rulesPath, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("MEDSCRIBE_API_TOKEN", "test-token")
	t.Setenv("MEDSCRIBE_RULES_FILE", rulesPath)

	_, err := Build(context.Background(), noopEventSink{}, Options{})
	if err == nil {
		t.Fatal("expected build error due to invalid rules")
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionStatus, _ domain.SessionStateReason) {}
func (noopEventSink) LiveSegment(_ domain.TranscriptionSegment)                               {}
func (noopEventSink) AudioLevel(_ float64)                                                    {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                               {}

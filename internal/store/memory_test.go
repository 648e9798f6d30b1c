package store

import (
	"context"
	"errors"
	"testing"

	"medscribe/internal/domain"
)

func TestMemoryStoreSaveAssignsID(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	patient := domain.Patient{
		Demographics: domain.PatientDemographics{FirstName: "Ana", LastName: "Reyes"},
	}

	id, err := store.Save(context.Background(), "patients", patient)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected an assigned id")
	}

	var loaded domain.Patient
	if err := store.Get(context.Background(), "patients", id, &loaded); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.Demographics.FirstName != "Ana" {
		t.Fatalf("unexpected loaded patient: %+v", loaded)
	}
	if loaded.ID != id {
		t.Fatalf("assigned id not persisted on the record: %q vs %q", loaded.ID, id)
	}
}

func TestMemoryStoreSaveKeepsExistingID(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	patient := domain.Patient{
		ID:           "patient-42",
		Demographics: domain.PatientDemographics{FirstName: "Ben"},
	}

	id, err := store.Save(context.Background(), "patients", patient)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id != "patient-42" {
		t.Fatalf("expected the record's own id, got %q", id)
	}

	// Saving again under the same id overwrites, not duplicates.
	patient.Demographics.FirstName = "Benjamin"
	if _, err := store.Save(context.Background(), "patients", patient); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if got := store.Count("patients"); got != 1 {
		t.Fatalf("expected 1 document, got %d", got)
	}

	var loaded domain.Patient
	if err := store.Get(context.Background(), "patients", id, &loaded); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.Demographics.FirstName != "Benjamin" {
		t.Fatalf("overwrite not applied: %+v", loaded)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	var out domain.Patient
	err := store.Get(context.Background(), "patients", "nope", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

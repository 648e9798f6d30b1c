package reconcile

import (
	"errors"
	"strings"
	"testing"

	"medscribe/internal/domain"
)

func sampleExtracted() domain.ExtractedMedicalData {
	return domain.ExtractedMedicalData{
		PatientInfo: domain.ExtractedPatientInfo{
			FirstName: "John",
			LastName:  "Smith",
			Age:       45,
			Gender:    "male",
		},
		MedicalHistory: domain.ExtractedMedicalHistory{
			ChiefComplaint:     "chest pain",
			ChronicConditions:  []string{"hypertension"},
			PastMedicalHistory: []string{"appendectomy 2010", "hypertension"},
		},
		Medications: domain.ExtractedMedications{
			CurrentMedications: []domain.ExtractedMedication{
				{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily"},
				{Name: "Aspirin"},
			},
		},
		Allergies: domain.ExtractedAllergies{
			DrugAllergies: []domain.ExtractedAllergy{
				{Allergen: "Penicillin", Reaction: "rash"},
			},
			FoodAllergies: []domain.ExtractedAllergy{
				{Allergen: "Peanuts"},
			},
		},
		ExtractionConfidence: 0.9,
	}
}

func TestProposeNewPatientFoldsAllergies(t *testing.T) {
	t.Parallel()

	extracted := sampleExtracted()
	patient, err := ProposeNewPatient(extracted, Prefill(extracted))
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	found := false
	for _, allergy := range patient.BasicHistory.KnownAllergies {
		if allergy == "Penicillin (rash)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q in known allergies, got %v", "Penicillin (rash)", patient.BasicHistory.KnownAllergies)
	}

	// Allergy without a reaction folds to the bare allergen.
	foundBare := false
	for _, allergy := range patient.BasicHistory.KnownAllergies {
		if allergy == "Peanuts" {
			foundBare = true
		}
	}
	if !foundBare {
		t.Fatalf("expected bare allergen, got %v", patient.BasicHistory.KnownAllergies)
	}
}

func TestProposeNewPatientBuildsCompleteRecord(t *testing.T) {
	t.Parallel()

	extracted := sampleExtracted()
	form := Prefill(extracted)
	form.Phone = "555-0101"
	form.CreatedBy = "dr.jones"

	patient, err := ProposeNewPatient(extracted, form)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	if patient.ID == "" {
		t.Fatal("expected a generated patient ID")
	}
	if patient.Demographics.FirstName != "John" || patient.Demographics.LastName != "Smith" {
		t.Fatalf("unexpected demographics: %+v", patient.Demographics)
	}
	if patient.Demographics.Phone != "555-0101" {
		t.Fatalf("form override not applied: %+v", patient.Demographics)
	}
	if !patient.IsActive || patient.CreatedAt.IsZero() {
		t.Fatalf("record metadata not set: %+v", patient)
	}
	if patient.CreatedBy != "dr.jones" {
		t.Fatalf("unexpected creator: %q", patient.CreatedBy)
	}

	wantMedications := []string{"Lisinopril 10mg daily", "Aspirin"}
	if len(patient.BasicHistory.CurrentMedications) != len(wantMedications) {
		t.Fatalf("unexpected medications: %v", patient.BasicHistory.CurrentMedications)
	}
	for i, want := range wantMedications {
		if patient.BasicHistory.CurrentMedications[i] != want {
			t.Fatalf("medication %d: want %q, got %q", i, want, patient.BasicHistory.CurrentMedications[i])
		}
	}

	// Duplicate condition across chronic and past history folds once.
	if len(patient.BasicHistory.KnownConditions) != 2 {
		t.Fatalf("expected deduplicated conditions, got %v", patient.BasicHistory.KnownConditions)
	}
	if !strings.Contains(patient.BasicHistory.Notes, "Chief complaint: chest pain") {
		t.Fatalf("notes missing chief complaint: %q", patient.BasicHistory.Notes)
	}
}

func TestProposeNewPatientRequiresAName(t *testing.T) {
	t.Parallel()

	_, err := ProposeNewPatient(domain.ExtractedMedicalData{}, NewPatientForm{})

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) || stageErr.Code != domain.ErrCodeInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestProposeUpdateAppendsOnlyNewEntries(t *testing.T) {
	t.Parallel()

	existing := domain.Patient{
		ID: "patient-1",
		Demographics: domain.PatientDemographics{
			FirstName: "John",
			LastName:  "Smith",
		},
		BasicHistory: domain.BasicMedicalHistory{
			KnownAllergies:     []string{"Penicillin (rash)"},
			CurrentMedications: []string{"Lisinopril 10mg daily"},
			KnownConditions:    []string{"hypertension"},
		},
	}

	update := ProposeUpdate(sampleExtracted(), existing)

	if update.PatientID != "patient-1" {
		t.Fatalf("unexpected patient id: %q", update.PatientID)
	}
	if len(update.NewAllergies) != 1 || update.NewAllergies[0] != "Peanuts" {
		t.Fatalf("expected only the new allergy, got %v", update.NewAllergies)
	}
	if len(update.NewMedications) != 1 || update.NewMedications[0] != "Aspirin" {
		t.Fatalf("expected only the new medication, got %v", update.NewMedications)
	}
	if len(update.NewConditions) != 1 || update.NewConditions[0] != "appendectomy 2010" {
		t.Fatalf("expected only the new condition, got %v", update.NewConditions)
	}
	if len(update.Conflicts) != 0 {
		t.Fatalf("matching demographics must not conflict: %v", update.Conflicts)
	}

	// Proposal never mutates the existing record.
	if len(existing.BasicHistory.KnownAllergies) != 1 {
		t.Fatalf("existing patient was mutated: %v", existing.BasicHistory.KnownAllergies)
	}
}

func TestProposeUpdateFlagsDemographicConflicts(t *testing.T) {
	t.Parallel()

	existing := domain.Patient{
		ID: "patient-2",
		Demographics: domain.PatientDemographics{
			FirstName: "Jonathan",
			LastName:  "Smith",
			Gender:    "male",
		},
	}

	update := ProposeUpdate(sampleExtracted(), existing)

	if len(update.Conflicts) != 1 || update.Conflicts[0] != "firstName" {
		t.Fatalf("expected firstName conflict, got %v", update.Conflicts)
	}
	if update.Demographics != nil {
		t.Fatal("conflicting demographics must be left to manual resolution")
	}
}

func TestApplyUpdateMergesHistory(t *testing.T) {
	t.Parallel()

	patient := domain.Patient{
		ID: "patient-3",
		BasicHistory: domain.BasicMedicalHistory{
			KnownAllergies: []string{"Penicillin (rash)"},
			Notes:          "established patient",
		},
	}
	update := domain.PatientUpdate{
		PatientID:     "patient-3",
		NewAllergies:  []string{"Peanuts"},
		AppendedNotes: "Chief complaint: chest pain",
	}

	merged := ApplyUpdate(patient, update)

	if len(merged.BasicHistory.KnownAllergies) != 2 {
		t.Fatalf("unexpected merged allergies: %v", merged.BasicHistory.KnownAllergies)
	}
	if !strings.Contains(merged.BasicHistory.Notes, "established patient") ||
		!strings.Contains(merged.BasicHistory.Notes, "chest pain") {
		t.Fatalf("notes not appended: %q", merged.BasicHistory.Notes)
	}
	if merged.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}
	if len(patient.BasicHistory.KnownAllergies) != 1 {
		t.Fatal("apply must not mutate its input")
	}
}

func TestSummaryIncludesKeyFindings(t *testing.T) {
	t.Parallel()

	summary := Summary(sampleExtracted())
	for _, want := range []string{
		"Patient: John Smith",
		"Penicillin (rash)",
		"Lisinopril 10mg daily",
		"chest pain",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

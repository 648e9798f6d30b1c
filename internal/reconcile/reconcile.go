// Package reconcile turns extracted medical data into patient record
// proposals. Every function here is pure; the caller persists results
// only after explicit user confirmation.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medscribe/internal/domain"
)

// NewPatientForm holds the user-edited demographic fields for a new
// patient. Prefill seeds it from extracted data; the user may override
// any field before the proposal is built.
type NewPatientForm struct {
	FirstName   string
	LastName    string
	DateOfBirth string
	Gender      string
	Phone       string
	CreatedBy   string
}

// Prefill seeds a form from the extracted patient info.
func Prefill(extracted domain.ExtractedMedicalData) NewPatientForm {
	info := extracted.PatientInfo
	return NewPatientForm{
		FirstName:   strings.TrimSpace(info.FirstName),
		LastName:    strings.TrimSpace(info.LastName),
		DateOfBirth: strings.TrimSpace(info.DateOfBirth),
		Gender:      strings.TrimSpace(info.Gender),
		Phone:       strings.TrimSpace(info.Phone),
	}
}

// ProposeNewPatient builds a complete Patient value from the form and
// the extracted clinical groups folded into free-text history fields.
func ProposeNewPatient(extracted domain.ExtractedMedicalData, form NewPatientForm) (domain.Patient, error) {
	if strings.TrimSpace(form.FirstName) == "" && strings.TrimSpace(form.LastName) == "" {
		return domain.Patient{}, domain.ReconciliationError(domain.ErrCodeInvalidInput, "a patient needs at least a first or last name", nil)
	}

	now := time.Now()
	return domain.Patient{
		ID: fmt.Sprintf("patient-%s", uuid.NewString()),
		Demographics: domain.PatientDemographics{
			FirstName:   strings.TrimSpace(form.FirstName),
			LastName:    strings.TrimSpace(form.LastName),
			DateOfBirth: strings.TrimSpace(form.DateOfBirth),
			Gender:      strings.TrimSpace(form.Gender),
			Phone:       strings.TrimSpace(form.Phone),
		},
		BasicHistory: domain.BasicMedicalHistory{
			KnownAllergies:     foldAllergies(extracted.Allergies),
			CurrentMedications: foldMedications(extracted.Medications),
			KnownConditions:    foldConditions(extracted.MedicalHistory),
			Notes:              foldNotes(extracted),
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: strings.TrimSpace(form.CreatedBy),
	}, nil
}

// ProposeUpdate computes a field-level merge of extracted data against
// an existing patient. New allergies, medications, and conditions are
// appended; demographic disagreements are reported as conflicts and
// left to manual resolution. The existing patient is never mutated.
func ProposeUpdate(extracted domain.ExtractedMedicalData, existing domain.Patient) domain.PatientUpdate {
	update := domain.PatientUpdate{
		PatientID:      existing.ID,
		NewAllergies:   []string{},
		NewMedications: []string{},
		NewConditions:  []string{},
		Conflicts:      []string{},
		ProposedAt:     time.Now(),
	}

	for _, allergy := range foldAllergies(extracted.Allergies) {
		if !containsFold(existing.BasicHistory.KnownAllergies, allergy) {
			update.NewAllergies = append(update.NewAllergies, allergy)
		}
	}
	for _, medication := range foldMedications(extracted.Medications) {
		if !containsFold(existing.BasicHistory.CurrentMedications, medication) {
			update.NewMedications = append(update.NewMedications, medication)
		}
	}
	for _, condition := range foldConditions(extracted.MedicalHistory) {
		if !containsFold(existing.BasicHistory.KnownConditions, condition) {
			update.NewConditions = append(update.NewConditions, condition)
		}
	}

	update.Conflicts = demographicConflicts(extracted.PatientInfo, existing.Demographics)
	update.AppendedNotes = foldNotes(extracted)
	return update
}

// ApplyUpdate merges an accepted proposal into a copy of the patient.
// Conflicted demographic fields are untouched; they were left to
// manual resolution when the proposal was built.
func ApplyUpdate(patient domain.Patient, update domain.PatientUpdate) domain.Patient {
	merged := patient
	merged.BasicHistory.KnownAllergies = appendAll(patient.BasicHistory.KnownAllergies, update.NewAllergies)
	merged.BasicHistory.CurrentMedications = appendAll(patient.BasicHistory.CurrentMedications, update.NewMedications)
	merged.BasicHistory.KnownConditions = appendAll(patient.BasicHistory.KnownConditions, update.NewConditions)

	if update.AppendedNotes != "" {
		if merged.BasicHistory.Notes != "" {
			merged.BasicHistory.Notes += "\n" + update.AppendedNotes
		} else {
			merged.BasicHistory.Notes = update.AppendedNotes
		}
	}
	if update.Demographics != nil {
		merged.Demographics = *update.Demographics
	}
	merged.UpdatedAt = time.Now()
	return merged
}

// foldAllergies flattens all allergy groups into "Allergen (reaction)"
// strings.
func foldAllergies(allergies domain.ExtractedAllergies) []string {
	folded := []string{}
	for _, group := range [][]domain.ExtractedAllergy{
		allergies.DrugAllergies,
		allergies.FoodAllergies,
		allergies.EnvironmentalAllergies,
	} {
		for _, allergy := range group {
			allergen := strings.TrimSpace(allergy.Allergen)
			if allergen == "" {
				continue
			}
			if reaction := strings.TrimSpace(allergy.Reaction); reaction != "" {
				folded = append(folded, fmt.Sprintf("%s (%s)", allergen, reaction))
			} else {
				folded = append(folded, allergen)
			}
		}
	}
	return folded
}

// foldMedications flattens current medications into "Name Dosage
// Frequency" strings.
func foldMedications(medications domain.ExtractedMedications) []string {
	folded := []string{}
	for _, medication := range medications.CurrentMedications {
		name := strings.TrimSpace(medication.Name)
		if name == "" {
			continue
		}
		parts := []string{name}
		if dosage := strings.TrimSpace(medication.Dosage); dosage != "" {
			parts = append(parts, dosage)
		}
		if frequency := strings.TrimSpace(medication.Frequency); frequency != "" {
			parts = append(parts, frequency)
		}
		folded = append(folded, strings.Join(parts, " "))
	}
	return folded
}

func foldConditions(history domain.ExtractedMedicalHistory) []string {
	folded := []string{}
	for _, condition := range history.ChronicConditions {
		if trimmed := strings.TrimSpace(condition); trimmed != "" && !containsFold(folded, trimmed) {
			folded = append(folded, trimmed)
		}
	}
	for _, condition := range history.PastMedicalHistory {
		if trimmed := strings.TrimSpace(condition); trimmed != "" && !containsFold(folded, trimmed) {
			folded = append(folded, trimmed)
		}
	}
	return folded
}

func foldNotes(extracted domain.ExtractedMedicalData) string {
	var lines []string
	if complaint := strings.TrimSpace(extracted.MedicalHistory.ChiefComplaint); complaint != "" {
		lines = append(lines, "Chief complaint: "+complaint)
	}
	if hpi := strings.TrimSpace(extracted.MedicalHistory.HistoryOfPresentIllness); hpi != "" {
		lines = append(lines, "History of present illness: "+hpi)
	}
	if smoking := strings.TrimSpace(extracted.SocialHistory.SmokingStatus); smoking != "" {
		lines = append(lines, "Smoking: "+smoking)
	}
	if alcohol := strings.TrimSpace(extracted.SocialHistory.AlcoholUse); alcohol != "" {
		lines = append(lines, "Alcohol: "+alcohol)
	}
	return strings.Join(lines, "\n")
}

func demographicConflicts(info domain.ExtractedPatientInfo, existing domain.PatientDemographics) []string {
	conflicts := []string{}
	if disagrees(info.FirstName, existing.FirstName) {
		conflicts = append(conflicts, "firstName")
	}
	if disagrees(info.LastName, existing.LastName) {
		conflicts = append(conflicts, "lastName")
	}
	if disagrees(info.DateOfBirth, existing.DateOfBirth) {
		conflicts = append(conflicts, "dateOfBirth")
	}
	if disagrees(info.Gender, existing.Gender) {
		conflicts = append(conflicts, "gender")
	}
	if disagrees(info.Phone, existing.Phone) {
		conflicts = append(conflicts, "phone")
	}
	return conflicts
}

// disagrees reports a conflict only when both values are present and
// differ; an empty extracted value never conflicts.
func disagrees(extracted string, existing string) bool {
	extracted = strings.TrimSpace(extracted)
	existing = strings.TrimSpace(existing)
	return extracted != "" && existing != "" && !strings.EqualFold(extracted, existing)
}

func containsFold(values []string, candidate string) bool {
	for _, value := range values {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

func appendAll(existing []string, added []string) []string {
	merged := append([]string(nil), existing...)
	return append(merged, added...)
}

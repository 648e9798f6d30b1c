package reconcile

import (
	"fmt"
	"strings"

	"medscribe/internal/domain"
)

// Summary renders a short human-readable synopsis of an extraction,
// used to present a proposal for confirmation.
func Summary(extracted domain.ExtractedMedicalData) string {
	var b strings.Builder

	name := strings.TrimSpace(strings.Join([]string{
		extracted.PatientInfo.FirstName,
		extracted.PatientInfo.LastName,
	}, " "))
	if name != "" {
		fmt.Fprintf(&b, "Patient: %s\n", name)
	}
	if extracted.PatientInfo.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", extracted.PatientInfo.Age)
	}
	if complaint := strings.TrimSpace(extracted.MedicalHistory.ChiefComplaint); complaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s\n", complaint)
	}

	if allergies := foldAllergies(extracted.Allergies); len(allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(allergies, "; "))
	}
	if medications := foldMedications(extracted.Medications); len(medications) > 0 {
		fmt.Fprintf(&b, "Medications: %s\n", strings.Join(medications, "; "))
	}
	if conditions := foldConditions(extracted.MedicalHistory); len(conditions) > 0 {
		fmt.Fprintf(&b, "Conditions: %s\n", strings.Join(conditions, "; "))
	}
	if bp := strings.TrimSpace(extracted.VitalSigns.BloodPressure); bp != "" {
		fmt.Fprintf(&b, "Blood pressure: %s\n", bp)
	}
	fmt.Fprintf(&b, "Extraction confidence: %.2f\n", extracted.ExtractionConfidence)

	return b.String()
}

package reasoning

import (
	"fmt"
	"strings"

	"medscribe/internal/domain"
)

const analysisSystemPrompt = `You are a clinical decision support assistant reviewing a transcribed patient visit.
Respond with a single JSON object and nothing else. Use these top-level keys:
"symptoms", "possible_diagnoses", "treatment_suggestions", "flagged_concerns",
"follow_up_recommendations", "confidence_score", "reasoning".
Omit a key entirely if the transcript gives you nothing for it.
Never invent clinical facts that are not supported by the transcript.`

const extractionSystemPrompt = `You are a medical scribe converting a transcribed patient visit into a structured record.
Respond with a single JSON object and nothing else. Use these top-level keys:
"patientInfo", "medicalHistory", "clinicalFindings", "medications", "allergies",
"vitalSigns", "socialHistory", "familyHistory", "treatmentPlan", "followUp",
"extractionConfidence".
Omit any group the transcript gives you nothing for.
Record only information explicitly stated in the transcript.`

func analysisUserPrompt(transcript string, pctx *domain.PatientContext) string {
	var b strings.Builder
	writePatientContext(&b, pctx)
	b.WriteString("Visit transcript:\n")
	b.WriteString(transcript)
	return b.String()
}

func extractionUserPrompt(transcript string, pctx *domain.PatientContext, prior *domain.AnalysisResult) string {
	var b strings.Builder
	writePatientContext(&b, pctx)
	if prior != nil && len(prior.Symptoms) > 0 {
		b.WriteString("Symptoms already identified by clinical analysis:\n")
		for _, symptom := range prior.Symptoms {
			fmt.Fprintf(&b, "- %s", symptom.Name)
			if symptom.Severity != "" {
				fmt.Fprintf(&b, " (%s)", symptom.Severity)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Visit transcript:\n")
	b.WriteString(transcript)
	return b.String()
}

func writePatientContext(b *strings.Builder, pctx *domain.PatientContext) {
	if pctx == nil {
		return
	}
	b.WriteString("Known patient background:\n")
	if pctx.Age > 0 {
		fmt.Fprintf(b, "- Age: %d\n", pctx.Age)
	}
	if pctx.Gender != "" {
		fmt.Fprintf(b, "- Gender: %s\n", pctx.Gender)
	}
	if history := strings.TrimSpace(pctx.MedicalHistory); history != "" {
		fmt.Fprintf(b, "- Medical history: %s\n", history)
	}
	if medications := strings.TrimSpace(pctx.Medications); medications != "" {
		fmt.Fprintf(b, "- Current medications: %s\n", medications)
	}
	if allergies := strings.TrimSpace(pctx.Allergies); allergies != "" {
		fmt.Fprintf(b, "- Known allergies: %s\n", allergies)
	}
	b.WriteString("\n")
}

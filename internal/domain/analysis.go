package domain

import "time"

// Symptom is one clinical symptom identified in a transcript.
type Symptom struct {
	ID                string   `json:"id" bson:"id"`
	Name              string   `json:"name" bson:"name"`
	Severity          string   `json:"severity" bson:"severity"` // mild|moderate|severe|critical
	Confidence        float64  `json:"confidence" bson:"confidence"`
	Duration          string   `json:"duration" bson:"duration"`
	Location          string   `json:"location,omitempty" bson:"location,omitempty"`
	Quality           string   `json:"quality,omitempty" bson:"quality,omitempty"`
	AssociatedFactors []string `json:"associatedFactors" bson:"associatedFactors"`
	SourceText        string   `json:"sourceText,omitempty" bson:"sourceText,omitempty"`
}

// Diagnosis is one entry of the differential diagnosis.
type Diagnosis struct {
	ID                    string   `json:"id" bson:"id"`
	Condition             string   `json:"condition" bson:"condition"`
	ICD10Code             string   `json:"icd10Code" bson:"icd10Code"`
	Probability           float64  `json:"probability" bson:"probability"`
	Severity              string   `json:"severity" bson:"severity"`
	SupportingEvidence    []string `json:"supportingEvidence" bson:"supportingEvidence"`
	AgainstEvidence       []string `json:"againstEvidence" bson:"againstEvidence"`
	AdditionalTestsNeeded []string `json:"additionalTestsNeeded" bson:"additionalTestsNeeded"`
	Reasoning             string   `json:"reasoning" bson:"reasoning"`
	Urgency               string   `json:"urgency" bson:"urgency"` // routine|urgent|emergent
}

// Treatment is one treatment recommendation.
type Treatment struct {
	ID                string   `json:"id" bson:"id"`
	Category          string   `json:"category" bson:"category"` // medication|procedure|lifestyle|referral|monitoring
	Recommendation    string   `json:"recommendation" bson:"recommendation"`
	Priority          string   `json:"priority" bson:"priority"`
	Timeframe         string   `json:"timeframe" bson:"timeframe"`
	Contraindications []string `json:"contraindications" bson:"contraindications"`
	Alternatives      []string `json:"alternatives" bson:"alternatives"`
	ExpectedOutcome   string   `json:"expectedOutcome" bson:"expectedOutcome"`
}

// ConcernFlag marks a finding that needs attention beyond the routine
// treatment plan.
type ConcernFlag struct {
	ID                      string `json:"id" bson:"id"`
	Type                    string `json:"type" bson:"type"` // red_flag|drug_interaction|allergy|urgent_referral
	Severity                string `json:"severity" bson:"severity"`
	Message                 string `json:"message" bson:"message"`
	Recommendation          string `json:"recommendation" bson:"recommendation"`
	RequiresImmediateAction bool   `json:"requiresImmediateAction" bson:"requiresImmediateAction"`
}

// AnalysisResult is the structured clinical analysis of one
// transcript. Slice fields are always non-nil; the reasoning adapter
// substitutes empty slices for anything the upstream reply omitted.
type AnalysisResult struct {
	ID              string        `json:"id" bson:"id"`
	Symptoms        []Symptom     `json:"symptoms" bson:"symptoms"`
	Diagnoses       []Diagnosis   `json:"diagnoses" bson:"diagnoses"`
	Treatments      []Treatment   `json:"treatments" bson:"treatments"`
	Concerns        []ConcernFlag `json:"concerns" bson:"concerns"`
	ConfidenceScore float64       `json:"confidenceScore" bson:"confidenceScore"`
	Reasoning       string        `json:"reasoning" bson:"reasoning"`
	NextSteps       []string      `json:"nextSteps" bson:"nextSteps"`
	Timestamp       time.Time     `json:"timestamp" bson:"timestamp"`
}

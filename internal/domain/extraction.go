package domain

import "time"

// ExtractedMedicalData is the provider-agnostic structured record the
// extraction stage maps a transcript into. It is never mutated after
// creation; a new extraction produces a new value. Nested slice fields
// are always present (possibly empty), never nil.
type ExtractedMedicalData struct {
	PatientInfo      ExtractedPatientInfo     `json:"patientInfo" bson:"patientInfo"`
	MedicalHistory   ExtractedMedicalHistory  `json:"medicalHistory" bson:"medicalHistory"`
	ClinicalFindings ExtractedClinicalFinding `json:"clinicalFindings" bson:"clinicalFindings"`
	Medications      ExtractedMedications     `json:"medications" bson:"medications"`
	Allergies        ExtractedAllergies       `json:"allergies" bson:"allergies"`
	VitalSigns       ExtractedVitalSigns      `json:"vitalSigns" bson:"vitalSigns"`
	SocialHistory    ExtractedSocialHistory   `json:"socialHistory" bson:"socialHistory"`
	FamilyHistory    ExtractedFamilyHistory   `json:"familyHistory" bson:"familyHistory"`
	TreatmentPlan    ExtractedTreatmentPlan   `json:"treatmentPlan" bson:"treatmentPlan"`
	FollowUp         ExtractedFollowUp        `json:"followUp" bson:"followUp"`

	ExtractionConfidence float64   `json:"extractionConfidence" bson:"extractionConfidence"`
	ExtractionTimestamp  time.Time `json:"extractionTimestamp" bson:"extractionTimestamp"`
}

type ExtractedPatientInfo struct {
	FirstName   string  `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName    string  `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Age         int     `json:"age,omitempty" bson:"age,omitempty"`
	DateOfBirth string  `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender      string  `json:"gender,omitempty" bson:"gender,omitempty"`
	Phone       string  `json:"phone,omitempty" bson:"phone,omitempty"`
	Confidence  float64 `json:"confidence" bson:"confidence"`
}

type ExtractedMedicalHistory struct {
	ChiefComplaint           string   `json:"chiefComplaint" bson:"chiefComplaint"`
	HistoryOfPresentIllness  string   `json:"historyOfPresentIllness" bson:"historyOfPresentIllness"`
	PastMedicalHistory       []string `json:"pastMedicalHistory" bson:"pastMedicalHistory"`
	PastSurgicalHistory      []string `json:"pastSurgicalHistory" bson:"pastSurgicalHistory"`
	ChronicConditions        []string `json:"chronicConditions" bson:"chronicConditions"`
	PreviousHospitalizations []string `json:"previousHospitalizations" bson:"previousHospitalizations"`
	Confidence               float64  `json:"confidence" bson:"confidence"`
}

type ExtractedClinicalFinding struct {
	Symptoms            []Symptom `json:"symptoms" bson:"symptoms"`
	PhysicalExamFinding []string  `json:"physicalExamFindings" bson:"physicalExamFindings"`
	Confidence          float64   `json:"confidence" bson:"confidence"`
}

// ExtractedMedication is one medication mentioned in a transcript.
type ExtractedMedication struct {
	Name       string  `json:"name" bson:"name"`
	Dosage     string  `json:"dosage" bson:"dosage"`
	Frequency  string  `json:"frequency" bson:"frequency"`
	Route      string  `json:"route,omitempty" bson:"route,omitempty"`
	Indication string  `json:"indication,omitempty" bson:"indication,omitempty"`
	Confidence float64 `json:"confidence" bson:"confidence"`
}

type ExtractedMedications struct {
	CurrentMedications []ExtractedMedication `json:"currentMedications" bson:"currentMedications"`
	RecentChanges      []string              `json:"recentChanges" bson:"recentChanges"`
	OverTheCounter     []ExtractedMedication `json:"overTheCounterMedications" bson:"overTheCounterMedications"`
	Confidence         float64               `json:"confidence" bson:"confidence"`
}

// ExtractedAllergy is one allergy with its observed reaction.
type ExtractedAllergy struct {
	Allergen   string  `json:"allergen" bson:"allergen"`
	Reaction   string  `json:"reaction" bson:"reaction"`
	Severity   string  `json:"severity,omitempty" bson:"severity,omitempty"`
	Confidence float64 `json:"confidence" bson:"confidence"`
}

type ExtractedAllergies struct {
	DrugAllergies          []ExtractedAllergy `json:"drugAllergies" bson:"drugAllergies"`
	FoodAllergies          []ExtractedAllergy `json:"foodAllergies" bson:"foodAllergies"`
	EnvironmentalAllergies []ExtractedAllergy `json:"environmentalAllergies" bson:"environmentalAllergies"`
	Confidence             float64            `json:"confidence" bson:"confidence"`
}

type ExtractedVitalSigns struct {
	BloodPressure    string  `json:"bloodPressure,omitempty" bson:"bloodPressure,omitempty"`
	HeartRate        string  `json:"heartRate,omitempty" bson:"heartRate,omitempty"`
	Temperature      string  `json:"temperature,omitempty" bson:"temperature,omitempty"`
	RespiratoryRate  string  `json:"respiratoryRate,omitempty" bson:"respiratoryRate,omitempty"`
	OxygenSaturation string  `json:"oxygenSaturation,omitempty" bson:"oxygenSaturation,omitempty"`
	Weight           string  `json:"weight,omitempty" bson:"weight,omitempty"`
	Height           string  `json:"height,omitempty" bson:"height,omitempty"`
	PainScore        string  `json:"painScore,omitempty" bson:"painScore,omitempty"`
	Confidence       float64 `json:"confidence" bson:"confidence"`
}

type ExtractedSocialHistory struct {
	SmokingStatus string  `json:"smokingStatus,omitempty" bson:"smokingStatus,omitempty"`
	AlcoholUse    string  `json:"alcoholUse,omitempty" bson:"alcoholUse,omitempty"`
	SubstanceUse  string  `json:"substanceUse,omitempty" bson:"substanceUse,omitempty"`
	Occupation    string  `json:"occupation,omitempty" bson:"occupation,omitempty"`
	Confidence    float64 `json:"confidence" bson:"confidence"`
}

type ExtractedFamilyHistory struct {
	Conditions           []string `json:"conditions" bson:"conditions"`
	HereditaryConditions []string `json:"hereditaryConditions" bson:"hereditaryConditions"`
	Confidence           float64  `json:"confidence" bson:"confidence"`
}

type ExtractedTreatmentPlan struct {
	Medications            []ExtractedMedication `json:"medications" bson:"medications"`
	Procedures             []string              `json:"procedures" bson:"procedures"`
	Referrals              []string              `json:"referrals" bson:"referrals"`
	LifestyleModifications []string              `json:"lifestyleModifications" bson:"lifestyleModifications"`
	Confidence             float64               `json:"confidence" bson:"confidence"`
}

type ExtractedFollowUp struct {
	NextAppointment   string   `json:"nextAppointment,omitempty" bson:"nextAppointment,omitempty"`
	ReturnPrecautions []string `json:"returnPrecautions" bson:"returnPrecautions"`
	HomeInstructions  []string `json:"homeInstructions" bson:"homeInstructions"`
	Confidence        float64  `json:"confidence" bson:"confidence"`
}

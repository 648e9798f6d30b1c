package domain

import "time"

// Patient is the persistence collaborator's entity. Reconciliation
// only ever proposes new Patient values or partial updates; it never
// holds persisted state.
type Patient struct {
	ID           string              `json:"id" bson:"_id"`
	Demographics PatientDemographics `json:"demographics" bson:"demographics"`
	BasicHistory BasicMedicalHistory `json:"basicHistory" bson:"basicHistory"`
	IsActive     bool                `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
	CreatedBy    string              `json:"createdBy" bson:"createdBy"`
}

type PatientDemographics struct {
	FirstName   string `json:"firstName" bson:"firstName"`
	LastName    string `json:"lastName" bson:"lastName"`
	DateOfBirth string `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender      string `json:"gender" bson:"gender"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
}

type BasicMedicalHistory struct {
	KnownAllergies     []string `json:"knownAllergies" bson:"knownAllergies"`
	CurrentMedications []string `json:"currentMedications" bson:"currentMedications"`
	KnownConditions    []string `json:"knownConditions" bson:"knownConditions"`
	Notes              string   `json:"notes,omitempty" bson:"notes,omitempty"`
}

// PatientUpdate is a field-level merge proposal against an existing
// patient. Nil Demographics means no demographic change; appended
// history entries never remove existing ones. Conflicts lists
// demographic fields where the extracted value disagrees with the
// stored one and is left to manual resolution.
type PatientUpdate struct {
	PatientID      string               `json:"patientId"`
	Demographics   *PatientDemographics `json:"demographics,omitempty"`
	NewAllergies   []string             `json:"newAllergies"`
	NewMedications []string             `json:"newMedications"`
	NewConditions  []string             `json:"newConditions"`
	AppendedNotes  string               `json:"appendedNotes,omitempty"`
	Conflicts      []string             `json:"conflicts"`
	ProposedAt     time.Time            `json:"proposedAt"`
}

package script

import (
	"time"

	"github.com/google/uuid"
)

// Document is the canonical JSON-serializable script document tree exchanged
// with the persistence layer. Top-level groups are fixed: admin, patient, sp,
// med_hist, special. Leaves are scalars or repeatable entry lists.
type Document map[string]interface{}

// Top-level document groups.
const (
	GroupAdmin   = "admin"
	GroupPatient = "patient"
	GroupSP      = "sp"
	GroupMedHist = "med_hist"
	GroupSpecial = "special"
)

// Temperature unit codes persisted in patient.vitals.temperature_unit.
const (
	TempCelsius    = 0
	TempFahrenheit = 1
)

// AffectDimensions lists the ten rated standardized-patient affect attributes.
// Each maps to an integer in [1,5] in the canonical document.
var AffectDimensions = []string{
	"anxiety", "surprise", "confusion", "guilt", "sadness",
	"indecision", "assertiveness", "frustration", "fear", "anger",
}

// ROSSystems lists the review-of-systems body systems under med_hist.ros.
var ROSSystems = []string{
	"constitutional", "heent", "cardiovascular", "respiratory",
	"gastrointestinal", "genitourinary", "musculoskeletal",
	"neurological", "psychiatric", "skin",
}

// TextRow is one entry of a plain repeatable text list.
type TextRow struct {
	Text string `json:"text"`
}

// PrescriptionRow is one entry of a medication or non-prescription substance
// list.
type PrescriptionRow struct {
	BrandSubstance  string `json:"brand_substance"`
	Amount          string `json:"amount"`
	Unit            string `json:"unit"`
	FrequencyReason string `json:"frequency_reason"`
}

// Empty reports whether every field of the row is blank.
func (p PrescriptionRow) Empty() bool {
	return p.BrandSubstance == "" && p.Amount == "" && p.Unit == "" && p.FrequencyReason == ""
}

// FamilyHistoryRow is one entry of the family history list. It carries both
// the modern vocabulary (family_member/details/additional_details) and the
// legacy one (relation/status/conditions/notes): downstream renderers
// historically read different key names, so normalization fills both sets
// from whichever shape arrived.
type FamilyHistoryRow struct {
	FamilyMember      string    `json:"family_member"`
	Details           string    `json:"details"`
	AdditionalDetails []TextRow `json:"additional_details"`

	Relation   string `json:"relation"`
	Status     string `json:"status"`
	Conditions string `json:"conditions"`
	Notes      string `json:"notes"`
}

// Empty reports whether every field of the row is blank.
func (f FamilyHistoryRow) Empty() bool {
	return f.FamilyMember == "" && f.Details == "" && len(f.AdditionalDetails) == 0 &&
		f.Relation == "" && f.Status == "" && f.Conditions == "" && f.Notes == ""
}

// DiagramMarker is a normalized 2D point on the body-diagram image.
// Coordinates are image-relative, clamped to [0,1].
type DiagramMarker struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultDocument returns a structurally complete empty document: every group
// and nested container present, scalars blank, rating fields at their floor,
// repeatable fields empty.
func DefaultDocument() Document {
	affect := map[string]interface{}{}
	for _, dim := range AffectDimensions {
		affect[dim] = 1
	}
	ros := map[string]interface{}{}
	for _, sys := range ROSSystems {
		ros[sys] = ""
	}
	return Document{
		GroupAdmin: map[string]interface{}{
			"case_title": "",
			// Legacy spelling kept for stored-document compatibility.
			"reson_for_visit":     "",
			"diagnosis":           "",
			"department":          "",
			"case_author":         "",
			"difficulty":          "",
			"duration_minutes":    0,
			"learning_objectives": "",
		},
		GroupPatient: map[string]interface{}{
			"name":         "",
			"age":          "",
			"gender":       "",
			"occupation":   "",
			"visit_reason": "",
			"vitals": map[string]interface{}{
				"temperature":       0,
				"temperature_unit":  TempCelsius,
				"heart_rate":        0,
				"blood_pressure":    "",
				"respiratory_rate":  0,
				"oxygen_saturation": 0,
				"height":            "",
				"weight":            "",
			},
		},
		GroupSP: map[string]interface{}{
			"affect":     affect,
			"pain_level": 0,
			"illness_history": map[string]interface{}{
				"onset":               "",
				"location":            "",
				"character":           "",
				"timing":              "",
				"aggravating_factors": "",
				"relieving_factors":   "",
				"associated_symptoms": "",
			},
			"diagram_markers": []interface{}{},
		},
		GroupMedHist: map[string]interface{}{
			"medications":       DefaultPrescription(),
			"non_prescription":  DefaultPrescription(),
			"allergies":         "",
			"past_medical":      "",
			"past_surgical":     "",
			"preventative_care": "",
			"family_hist":       DefaultFamilyHistory(),
			"social": map[string]interface{}{
				"smoking":            "",
				"alcohol":            "",
				"drugs":              "",
				"living_situation":   "",
				"occupation_details": "",
			},
			"ros": ros,
		},
		GroupSpecial: map[string]interface{}{
			"opening_statement": "",
			"prompts":           []interface{}{},
			"instructions":      "",
		},
	}
}

// DefaultPrescription returns an empty prescription record in map form.
func DefaultPrescription() map[string]interface{} {
	return map[string]interface{}{
		"brand_substance":  "",
		"amount":           "",
		"unit":             "",
		"frequency_reason": "",
	}
}

// DefaultFamilyHistory returns an empty family history record in map form,
// carrying both key vocabularies.
func DefaultFamilyHistory() map[string]interface{} {
	return map[string]interface{}{
		"family_member":      "",
		"details":            "",
		"additional_details": []interface{}{},
		"relation":           "",
		"status":             "",
		"conditions":         "",
		"notes":              "",
	}
}

// Script maps to the scripts table and wraps one canonical document.
type Script struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Department string    `db:"department" json:"department"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	Document   Document  `db:"document" json:"document"`
	VersionID  int       `db:"version_id" json:"version_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (s *Script) GetVersionID() int { return s.VersionID }

// SetVersionID sets the current version.
func (s *Script) SetVersionID(v int) { s.VersionID = v }

// VersionEntry is one snapshot in a script's version history.
type VersionEntry struct {
	VersionNumber int       `db:"version_number" json:"version_number"`
	ChangeNote    string    `db:"change_note" json:"change_note"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	Document      Document  `db:"document" json:"document"`
}

// UpdateMeta carries audit metadata recorded with each document update.
type UpdateMeta struct {
	ChangeNote string `json:"change_note"`
	CreatedBy  string `json:"created_by"`
}

package script

import (
	"math"
	"strconv"
	"strings"
)

// rawKind discriminates the shapes a legacy field value can arrive in. Stored
// documents have gone through several historical formats, so every repeatable
// field may be a bare scalar, a single record object, or a list of either.
type rawKind int

const (
	rawEmpty rawKind = iota
	rawText
	rawObject
	rawList
)

func kindOf(v interface{}) rawKind {
	switch v.(type) {
	case nil:
		return rawEmpty
	case string:
		return rawText
	case map[string]interface{}:
		return rawObject
	case []interface{}:
		return rawList
	default:
		return rawEmpty
	}
}

// elements flattens a raw value into a list of per-element values: a list
// yields its elements, a scalar or object yields itself, nil yields nothing.
func elements(v interface{}) []interface{} {
	switch kindOf(v) {
	case rawList:
		return v.([]interface{})
	case rawText, rawObject:
		return []interface{}{v}
	default:
		return nil
	}
}

// =========== Text lists ===========

// NormalizeTextList converts a field that may arrive as a bare string, a
// single record, or a list of either into an ordered list of trimmed,
// non-empty text entries. Relative order is preserved and duplicates are
// kept. Unrecognized shapes contribute nothing; the function never fails.
func NormalizeTextList(v interface{}) []string {
	var out []string
	for _, el := range elements(v) {
		if t := textOf(el); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// textOf reduces a single raw element to its text: strings pass through,
// records with a text field contribute that, prescription-like records are
// rendered through their display string.
func textOf(el interface{}) string {
	switch kindOf(el) {
	case rawText:
		return strings.TrimSpace(el.(string))
	case rawObject:
		m := el.(map[string]interface{})
		if t, ok := m["text"].(string); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
		if prescriptionLike(m) {
			return FormatPrescription(prescriptionFromMap(m))
		}
	}
	return ""
}

// ToBulletedText renders a text list as a bulleted block for narrative
// fields. This projection is intentionally one-directional: entries
// containing newlines cannot be recovered losslessly, see FromBulletedText.
func ToBulletedText(entries []string) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "- "+e)
	}
	return strings.Join(lines, "\n")
}

// FromBulletedText re-splits a bulleted block into entries by line, stripping
// the bullet prefix. Lossy inverse of ToBulletedText: embedded newlines in
// the original entries are not restored.
func FromBulletedText(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// =========== Prescription rows ===========

// Keys that mark a record as prescription-shaped, across historical formats.
var prescriptionKeys = []string{
	"brand_substance", "brand", "substance",
	"amount", "dose", "unit", "frequency_reason", "frequency",
}

func prescriptionLike(m map[string]interface{}) bool {
	for _, k := range prescriptionKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func prescriptionFromMap(m map[string]interface{}) PrescriptionRow {
	return PrescriptionRow{
		BrandSubstance:  firstString(m, "brand_substance", "brand", "substance"),
		Amount:          firstString(m, "amount", "dose"),
		Unit:            firstString(m, "unit"),
		FrequencyReason: firstString(m, "frequency_reason", "frequency"),
	}
}

// firstString returns the first non-empty trimmed string value among keys.
func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return ""
}

// NormalizePrescriptionRows accepts a legacy scalar, a single record, a
// modern typed record, or a list of any of these, and emits canonical
// prescription rows. Rows where every field is empty are dropped. Malformed
// input yields an empty list, never an error.
func NormalizePrescriptionRows(v interface{}) []PrescriptionRow {
	var out []PrescriptionRow
	for _, el := range elements(v) {
		var row PrescriptionRow
		switch kindOf(el) {
		case rawText:
			row = PrescriptionRow{BrandSubstance: strings.TrimSpace(el.(string))}
		case rawObject:
			row = prescriptionFromMap(el.(map[string]interface{}))
		}
		if !row.Empty() {
			out = append(out, row)
		}
	}
	return out
}

// NormalizeNonPrescriptionRows normalizes the over-the-counter substance
// list. Legacy records here used the "substance" key rather than
// "brand_substance", which prescriptionFromMap already accepts.
func NormalizeNonPrescriptionRows(v interface{}) []PrescriptionRow {
	return NormalizePrescriptionRows(v)
}

// FormatPrescription renders the canonical display string for a prescription
// row: "<brand> <amount><unit>" with amount and unit concatenated, joined
// with " - " to the frequency/reason when present. The dose is emitted only
// when both amount and unit are known. Empty parts collapse without stray
// separators.
func FormatPrescription(p PrescriptionRow) string {
	var dose string
	if p.Amount != "" && p.Unit != "" {
		dose = p.Amount + p.Unit
	}
	head := strings.TrimSpace(p.BrandSubstance + " " + dose)
	if p.FrequencyReason == "" {
		return head
	}
	if head == "" {
		return p.FrequencyReason
	}
	return head + " - " + p.FrequencyReason
}

// =========== Family history rows ===========

// NormalizeFamilyHistoryRows accepts the legacy shape
// (relation/status/conditions/notes), the modern shape
// (family_member/details/additional_details), or a list of either, and emits
// rows populated in both vocabularies so that either consumer can read them.
// All-empty rows are dropped.
func NormalizeFamilyHistoryRows(v interface{}) []FamilyHistoryRow {
	var out []FamilyHistoryRow
	for _, el := range elements(v) {
		var row FamilyHistoryRow
		switch kindOf(el) {
		case rawText:
			row = FamilyHistoryRow{FamilyMember: strings.TrimSpace(el.(string))}
			row.Relation = row.FamilyMember
		case rawObject:
			row = familyHistoryFromMap(el.(map[string]interface{}))
		}
		if !row.Empty() {
			out = append(out, row)
		}
	}
	return out
}

func familyHistoryFromMap(m map[string]interface{}) FamilyHistoryRow {
	row := FamilyHistoryRow{
		FamilyMember: firstString(m, "family_member", "relation"),
		Details:      firstString(m, "details", "conditions"),
		Relation:     firstString(m, "relation", "family_member"),
		Status:       firstString(m, "status"),
		Conditions:   firstString(m, "conditions", "details"),
		Notes:        firstString(m, "notes"),
	}
	for _, t := range NormalizeTextList(m["additional_details"]) {
		row.AdditionalDetails = append(row.AdditionalDetails, TextRow{Text: t})
	}
	// Bridge the vocabularies for free-text annotations.
	if len(row.AdditionalDetails) == 0 && row.Notes != "" {
		row.AdditionalDetails = []TextRow{{Text: row.Notes}}
	}
	if row.Notes == "" && len(row.AdditionalDetails) > 0 {
		texts := make([]string, 0, len(row.AdditionalDetails))
		for _, d := range row.AdditionalDetails {
			texts = append(texts, d.Text)
		}
		row.Notes = strings.Join(texts, "; ")
	}
	return row
}

// =========== Diagram markers ===========

// NormalizeDiagramMarkers normalizes body-diagram marker records. Coordinates
// are clamped to [0,1]; entries with non-finite or unparsable coordinates are
// dropped, never clamped to zero.
func NormalizeDiagramMarkers(v interface{}) []DiagramMarker {
	var out []DiagramMarker
	for _, el := range elements(v) {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		x, okX := coordOf(m["x"])
		y, okY := coordOf(m["y"])
		if !okX || !okY {
			continue
		}
		out = append(out, DiagramMarker{X: clamp01(x), Y: clamp01(y)})
	}
	return out
}

// coordOf extracts a finite coordinate from a raw value. Numeric strings are
// accepted because some legacy documents stored coordinates as text.
func coordOf(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

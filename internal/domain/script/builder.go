package script

import (
	"strconv"
	"strings"
)

// BuildDocument serializes live form state into the canonical document shape
// suitable for persistence. It is deterministic, pure, and total: any
// well-typed (possibly incomplete) form state yields a structurally valid
// document, with absent groups defaulting to empty subtrees. Repeatable
// fields are run through their family's normalizer and re-serialized to the
// document representation fixed for that family (structured list,
// newline-joined string, or bulleted block).
func BuildDocument(form map[string]interface{}) Document {
	doc := map[string]interface{}(DefaultDocument())

	admin := doc[GroupAdmin].(map[string]interface{})
	admin["case_title"] = formString(form, GroupAdmin, "case_title")
	// Flat top-level keys cover request projections, which carry the
	// reason outside the admin group.
	admin["reson_for_visit"] = firstFormString(form,
		[]string{GroupAdmin, "reson_for_visit"},
		[]string{GroupAdmin, "reason_for_visit"},
		[]string{"reson_for_visit"},
		[]string{"reason_for_visit"})
	admin["diagnosis"] = formString(form, GroupAdmin, "diagnosis")
	admin["department"] = formString(form, GroupAdmin, "department")
	admin["case_author"] = formString(form, GroupAdmin, "case_author")
	admin["difficulty"] = formString(form, GroupAdmin, "difficulty")
	admin["duration_minutes"] = intOrZero(Get(form, GroupAdmin, "duration_minutes"))
	admin["learning_objectives"] = ToBulletedText(NormalizeTextList(Get(form, GroupAdmin, "learning_objectives")))

	patient := doc[GroupPatient].(map[string]interface{})
	for _, key := range []string{"name", "age", "gender", "occupation", "visit_reason"} {
		patient[key] = formString(form, GroupPatient, key)
	}
	vitals := patient["vitals"].(map[string]interface{})
	vitals["temperature"] = numOrZero(Get(form, GroupPatient, "vitals", "temperature"))
	vitals["temperature_unit"] = CoerceTempUnit(Get(form, GroupPatient, "vitals", "temperature_unit"))
	vitals["heart_rate"] = intOrZero(Get(form, GroupPatient, "vitals", "heart_rate"))
	vitals["respiratory_rate"] = intOrZero(Get(form, GroupPatient, "vitals", "respiratory_rate"))
	vitals["oxygen_saturation"] = intOrZero(Get(form, GroupPatient, "vitals", "oxygen_saturation"))
	vitals["blood_pressure"] = formString(form, GroupPatient, "vitals", "blood_pressure")
	vitals["height"] = formString(form, GroupPatient, "vitals", "height")
	vitals["weight"] = formString(form, GroupPatient, "vitals", "weight")

	sp := doc[GroupSP].(map[string]interface{})
	affect := sp["affect"].(map[string]interface{})
	for _, dim := range AffectDimensions {
		affect[dim] = coerceRating(Get(form, GroupSP, "affect", dim), 1, 5)
	}
	sp["pain_level"] = coerceRating(Get(form, GroupSP, "pain_level"), 0, 10)
	illness := sp["illness_history"].(map[string]interface{})
	for _, key := range []string{"onset", "location", "character", "timing"} {
		illness[key] = formString(form, GroupSP, "illness_history", key)
	}
	for _, key := range []string{"aggravating_factors", "relieving_factors", "associated_symptoms"} {
		illness[key] = ToBulletedText(NormalizeTextList(Get(form, GroupSP, "illness_history", key)))
	}
	sp["diagram_markers"] = markersToList(NormalizeDiagramMarkers(Get(form, GroupSP, "diagram_markers")))

	medHist := doc[GroupMedHist].(map[string]interface{})
	medHist["medications"] = prescriptionsToList(NormalizePrescriptionRows(Get(form, GroupMedHist, "medications")))
	medHist["non_prescription"] = prescriptionsToList(NormalizeNonPrescriptionRows(Get(form, GroupMedHist, "non_prescription")))
	medHist["allergies"] = strings.Join(NormalizeTextList(Get(form, GroupMedHist, "allergies")), "\n")
	for _, key := range []string{"past_medical", "past_surgical", "preventative_care"} {
		medHist[key] = ToBulletedText(NormalizeTextList(Get(form, GroupMedHist, key)))
	}
	medHist["family_hist"] = familyHistoryToList(NormalizeFamilyHistoryRows(Get(form, GroupMedHist, "family_hist")))
	social := medHist["social"].(map[string]interface{})
	for _, key := range []string{"smoking", "alcohol", "drugs", "living_situation", "occupation_details"} {
		social[key] = formString(form, GroupMedHist, "social", key)
	}
	ros := medHist["ros"].(map[string]interface{})
	for _, sys := range ROSSystems {
		ros[sys] = strings.Join(NormalizeTextList(Get(form, GroupMedHist, "ros", sys)), "\n")
	}

	special := doc[GroupSpecial].(map[string]interface{})
	special["opening_statement"] = formString(form, GroupSpecial, "opening_statement")
	special["prompts"] = textsToRowList(NormalizeTextList(Get(form, GroupSpecial, "prompts")))
	special["instructions"] = ToBulletedText(NormalizeTextList(Get(form, GroupSpecial, "instructions")))

	return Document(doc)
}

// CoerceTempUnit maps a raw temperature-unit value to its persisted integer
// code. Free-text labels beginning (case-insensitively) with "f" mean
// Fahrenheit; the numeric code 1 passes through; everything else is Celsius.
func CoerceTempUnit(v interface{}) int {
	switch u := v.(type) {
	case string:
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(u)), "f") {
			return TempFahrenheit
		}
	case float64:
		if int(u) == TempFahrenheit {
			return TempFahrenheit
		}
	case int:
		if u == TempFahrenheit {
			return TempFahrenheit
		}
	}
	return TempCelsius
}

// coerceRating maps a raw rating value to an integer in [floor, max].
// Missing and out-of-range values default to the floor, not clamped: a
// rating outside its scale is treated as never entered.
func coerceRating(v interface{}, floor, max int) int {
	n, ok := intValue(v)
	if !ok || n < floor || n > max {
		return floor
	}
	return n
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func intOrZero(v interface{}) int {
	n, ok := intValue(v)
	if !ok {
		return 0
	}
	return n
}

func numOrZero(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func formString(form map[string]interface{}, path ...string) string {
	return strings.TrimSpace(GetString(form, path...))
}

func firstFormString(form map[string]interface{}, paths ...[]string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(GetString(form, p...)); s != "" {
			return s
		}
	}
	return ""
}

// =========== Row serialization ===========

func textsToRowList(texts []string) []interface{} {
	out := make([]interface{}, 0, len(texts))
	for _, t := range texts {
		out = append(out, map[string]interface{}{"text": t})
	}
	return out
}

func prescriptionsToList(rows []PrescriptionRow) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}{
			"brand_substance":  r.BrandSubstance,
			"amount":           r.Amount,
			"unit":             r.Unit,
			"frequency_reason": r.FrequencyReason,
		})
	}
	return out
}

func familyHistoryToList(rows []FamilyHistoryRow) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		details := make([]interface{}, 0, len(r.AdditionalDetails))
		for _, d := range r.AdditionalDetails {
			details = append(details, map[string]interface{}{"text": d.Text})
		}
		out = append(out, map[string]interface{}{
			"family_member":      r.FamilyMember,
			"details":            r.Details,
			"additional_details": details,
			"relation":           r.Relation,
			"status":             r.Status,
			"conditions":         r.Conditions,
			"notes":              r.Notes,
		})
	}
	return out
}

func markersToList(markers []DiagramMarker) []interface{} {
	out := make([]interface{}, 0, len(markers))
	for _, m := range markers {
		out = append(out, map[string]interface{}{"x": m.X, "y": m.Y})
	}
	return out
}

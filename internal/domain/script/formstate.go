package script

import "strings"

// Form state is the live-editing working tree: structurally identical to the
// canonical document but tolerant of partially-filled rows. Every repeatable
// group materializes at least one placeholder row while being edited (never
// an empty list in the UI); the persisted empty state of the same field is
// []. Diagram markers are the one exception: a placeholder marker would be a
// real point at (0,0), so the marker list may be empty in form state.

// EmptyTextRow returns a placeholder text row.
func EmptyTextRow() map[string]interface{} {
	return map[string]interface{}{"text": ""}
}

// EmptyPrescriptionRow returns a placeholder prescription row.
func EmptyPrescriptionRow() map[string]interface{} {
	return DefaultPrescription()
}

// EmptyFamilyHistoryRow returns a placeholder family history row.
func EmptyFamilyHistoryRow() map[string]interface{} {
	return DefaultFamilyHistory()
}

// NewFormState returns a fresh all-placeholder form tree for starting a new
// script request.
func NewFormState() map[string]interface{} {
	return FormFromDocument(DefaultDocument())
}

// FormFromDocument hydrates an editable form tree from a document. The
// document is normalized first, so any historical shape can be loaded.
// Bulleted and newline-joined narrative fields are re-split into rows, and
// every repeatable group gets a placeholder row when empty.
func FormFromDocument(doc Document) map[string]interface{} {
	norm := map[string]interface{}(NormalizeDocument(doc))
	form := copyNode(norm)

	admin := copyNode(norm[GroupAdmin].(map[string]interface{}))
	admin["learning_objectives"] = textRowsFromBullets(GetString(norm, GroupAdmin, "learning_objectives"))
	form[GroupAdmin] = admin

	sp := copyNode(norm[GroupSP].(map[string]interface{}))
	illness := copyNode(sp["illness_history"].(map[string]interface{}))
	for _, key := range []string{"aggravating_factors", "relieving_factors", "associated_symptoms"} {
		illness[key] = textRowsFromBullets(GetString(norm, GroupSP, "illness_history", key))
	}
	sp["illness_history"] = illness
	form[GroupSP] = sp

	medHist := copyNode(norm[GroupMedHist].(map[string]interface{}))
	medHist["medications"] = recordRows(medHist["medications"], EmptyPrescriptionRow)
	medHist["non_prescription"] = recordRows(medHist["non_prescription"], EmptyPrescriptionRow)
	medHist["family_hist"] = recordRows(medHist["family_hist"], EmptyFamilyHistoryRow)
	medHist["allergies"] = textRowsFromLines(GetString(norm, GroupMedHist, "allergies"))
	for _, key := range []string{"past_medical", "past_surgical", "preventative_care"} {
		medHist[key] = textRowsFromBullets(GetString(norm, GroupMedHist, key))
	}
	ros := copyNode(medHist["ros"].(map[string]interface{}))
	for _, sys := range ROSSystems {
		ros[sys] = textRowsFromLines(GetString(norm, GroupMedHist, "ros", sys))
	}
	medHist["ros"] = ros
	form[GroupMedHist] = medHist

	special := copyNode(norm[GroupSpecial].(map[string]interface{}))
	special["prompts"] = rowsOrPlaceholder(textsToRowList(NormalizeTextList(special["prompts"])), EmptyTextRow)
	special["instructions"] = textRowsFromBullets(GetString(norm, GroupSpecial, "instructions"))
	form[GroupSpecial] = special

	return form
}

// recordRows turns a single collapsed record into an editable one-row list,
// falling back to a placeholder when the record is all-empty.
func recordRows(v interface{}, placeholder func() map[string]interface{}) []interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if !recordEmpty(m) {
			return []interface{}{copyNode(m)}
		}
	}
	return []interface{}{placeholder()}
}

func recordEmpty(m map[string]interface{}) bool {
	for _, v := range m {
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return false
			}
		case []interface{}:
			if len(val) > 0 {
				return false
			}
		}
	}
	return true
}

func textRowsFromBullets(s string) []interface{} {
	return rowsOrPlaceholder(textsToRowList(FromBulletedText(s)), EmptyTextRow)
}

func textRowsFromLines(s string) []interface{} {
	var texts []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			texts = append(texts, t)
		}
	}
	return rowsOrPlaceholder(textsToRowList(texts), EmptyTextRow)
}

func rowsOrPlaceholder(rows []interface{}, placeholder func() map[string]interface{}) []interface{} {
	if len(rows) == 0 {
		return []interface{}{placeholder()}
	}
	return rows
}

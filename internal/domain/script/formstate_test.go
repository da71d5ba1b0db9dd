package script

import (
	"testing"
)

func TestNewFormState_PlaceholderRows(t *testing.T) {
	form := NewFormState()

	meds, ok := Get(form, GroupMedHist, "medications").([]interface{})
	if !ok || len(meds) != 1 {
		t.Fatalf("medications should be one placeholder row, got %v", Get(form, GroupMedHist, "medications"))
	}
	row := meds[0].(map[string]interface{})
	if row["brand_substance"] != "" {
		t.Errorf("placeholder row should be empty, got %v", row)
	}

	fh, ok := Get(form, GroupMedHist, "family_hist").([]interface{})
	if !ok || len(fh) != 1 {
		t.Fatalf("family_hist should be one placeholder row, got %v", Get(form, GroupMedHist, "family_hist"))
	}

	prompts, ok := Get(form, GroupSpecial, "prompts").([]interface{})
	if !ok || len(prompts) != 1 {
		t.Fatalf("prompts should be one placeholder row, got %v", Get(form, GroupSpecial, "prompts"))
	}

	// Diagram markers are the exception: a placeholder would be a real point.
	markers, ok := Get(form, GroupSP, "diagram_markers").([]interface{})
	if !ok {
		t.Fatal("diagram_markers missing")
	}
	if len(markers) != 0 {
		t.Errorf("diagram_markers should stay empty, got %v", markers)
	}
}

func TestFormFromDocument_ResplitsBulletedFields(t *testing.T) {
	doc := Document{
		"admin": map[string]interface{}{
			"learning_objectives": "- take a history\n- assess vitals",
		},
		"med_hist": map[string]interface{}{
			"allergies": "penicillin\nlatex",
		},
	}
	form := FormFromDocument(doc)

	rows, ok := Get(form, GroupAdmin, "learning_objectives").([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("learning_objectives rows = %v", Get(form, GroupAdmin, "learning_objectives"))
	}
	first := rows[0].(map[string]interface{})
	if first["text"] != "take a history" {
		t.Errorf("first row = %v", first)
	}

	allergyRows, ok := Get(form, GroupMedHist, "allergies").([]interface{})
	if !ok || len(allergyRows) != 2 {
		t.Fatalf("allergies rows = %v", Get(form, GroupMedHist, "allergies"))
	}
}

func TestFormFromDocument_HydratesCollapsedRecord(t *testing.T) {
	doc := Document{
		"med_hist": map[string]interface{}{
			"medications": map[string]interface{}{
				"brand_substance": "Albuterol", "amount": "90", "unit": "mcg", "frequency_reason": "",
			},
		},
	}
	form := FormFromDocument(doc)

	meds, ok := Get(form, GroupMedHist, "medications").([]interface{})
	if !ok || len(meds) != 1 {
		t.Fatalf("medications = %v", Get(form, GroupMedHist, "medications"))
	}
	row := meds[0].(map[string]interface{})
	if row["brand_substance"] != "Albuterol" {
		t.Errorf("hydrated row = %v", row)
	}
}

func TestFormRoundTrip_BuildThenHydrate(t *testing.T) {
	form := map[string]interface{}{
		GroupSpecial: map[string]interface{}{
			"opening_statement": "I've had this cough for a week.",
			"instructions": []interface{}{
				map[string]interface{}{"text": "stay in character"},
				map[string]interface{}{"text": "avoid medical jargon"},
			},
		},
	}

	doc := BuildDocument(form)
	back := FormFromDocument(doc)

	if got := GetString(back, GroupSpecial, "opening_statement"); got != "I've had this cough for a week." {
		t.Errorf("opening_statement = %q", got)
	}
	rows, ok := Get(back, GroupSpecial, "instructions").([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("instructions rows = %v", Get(back, GroupSpecial, "instructions"))
	}
	if rows[1].(map[string]interface{})["text"] != "avoid medical jargon" {
		t.Errorf("second instruction = %v", rows[1])
	}
}

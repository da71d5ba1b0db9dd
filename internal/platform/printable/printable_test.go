package printable

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spsim/spsim/internal/domain/script"
)

func testScript() *script.Script {
	return &script.Script{
		ID:         uuid.New(),
		Title:      "Knee pain follow-up",
		Department: "orthopedics",
		CreatedAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func fieldValue(p Projection, label string) (string, bool) {
	for _, f := range p.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

func TestFromScript_Header(t *testing.T) {
	sc := testScript()
	doc := script.Document{
		"patient": map[string]interface{}{"name": "Jordan Reyes"},
		"admin":   map[string]interface{}{"reson_for_visit": "Knee pain"},
	}
	versions := []script.VersionEntry{
		{VersionNumber: 2, ChangeNote: "updated vitals", CreatedBy: "u2", CreatedAt: time.Now()},
		{VersionNumber: 1, ChangeNote: "initial version", CreatedBy: "u1", CreatedAt: time.Now()},
	}

	p := FromScript(sc, versions, doc)

	if p.Title != "Knee pain follow-up" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Patient != "Jordan Reyes" {
		t.Errorf("patient = %q", p.Patient)
	}
	if p.Summary != "Knee pain" {
		t.Errorf("summary = %q", p.Summary)
	}
	if len(p.Versions) != 2 || p.Versions[0].Number != 2 {
		t.Errorf("versions = %+v", p.Versions)
	}
}

func TestFromScript_SummaryPrefersOpeningStatement(t *testing.T) {
	doc := script.Document{
		"admin":   map[string]interface{}{"reson_for_visit": "Knee pain"},
		"special": map[string]interface{}{"opening_statement": "My knee has been killing me for a week."},
	}
	p := FromScript(testScript(), nil, doc)
	if p.Summary != "My knee has been killing me for a week." {
		t.Errorf("summary = %q", p.Summary)
	}
}

func TestFromScript_FlattensGroups(t *testing.T) {
	doc := script.Document{
		"admin": map[string]interface{}{
			"diagnosis":       "Meniscus tear",
			"reson_for_visit": "Knee pain",
		},
		"med_hist": map[string]interface{}{
			"medications": []interface{}{
				map[string]interface{}{"brand_substance": "Ibuprofen", "amount": "400", "unit": "mg", "frequency_reason": "as needed"},
			},
		},
	}
	p := FromScript(testScript(), nil, doc)

	if v, ok := fieldValue(p, "Case Information / Diagnosis"); !ok || v != "Meniscus tear" {
		t.Errorf("diagnosis field = %q, found=%v", v, ok)
	}
	if v, ok := fieldValue(p, "Medical History / Medications"); !ok || v != "Ibuprofen 400mg - as needed" {
		t.Errorf("medications field = %q, found=%v", v, ok)
	}
}

func TestFromScript_SkipsEmptyValues(t *testing.T) {
	doc := script.Document{
		"admin": map[string]interface{}{"diagnosis": "Gout", "setting": ""},
	}
	p := FromScript(testScript(), nil, doc)

	for _, f := range p.Fields {
		if f.Value == "" {
			t.Errorf("empty value rendered for %q", f.Label)
		}
	}
}

func TestFromScript_GroupOrderStable(t *testing.T) {
	doc := script.Document{
		"special": map[string]interface{}{"opening_statement": "Hello"},
		"admin":   map[string]interface{}{"diagnosis": "Gout"},
	}
	p := FromScript(testScript(), nil, doc)

	var adminIdx, specialIdx = -1, -1
	for i, f := range p.Fields {
		if strings.HasPrefix(f.Label, "Case Information /") && adminIdx == -1 {
			adminIdx = i
		}
		if strings.HasPrefix(f.Label, "Special Instructions /") && specialIdx == -1 {
			specialIdx = i
		}
	}
	if adminIdx == -1 || specialIdx == -1 || adminIdx > specialIdx {
		t.Errorf("group order wrong: admin=%d special=%d", adminIdx, specialIdx)
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"reson_for_visit":   "Reson For Visit",
		"opening_statement": "Opening Statement",
		"diagnosis":         "Diagnosis",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

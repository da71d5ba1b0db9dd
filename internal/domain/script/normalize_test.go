package script

import (
	"reflect"
	"testing"
)

func TestNormalizeDocument_NilYieldsDefaults(t *testing.T) {
	got := NormalizeDocument(nil)
	if !reflect.DeepEqual(got, DefaultDocument()) {
		t.Error("nil document should normalize to the default document")
	}
}

func TestNormalizeDocument_Idempotent(t *testing.T) {
	raw := Document{
		"admin": map[string]interface{}{"diagnosis": "bronchitis"},
		"med_hist": map[string]interface{}{
			"medications": []interface{}{
				map[string]interface{}{"brand_substance": "Albuterol", "amount": "90", "unit": "mcg"},
			},
			"family_hist": map[string]interface{}{"relation": "Mother", "conditions": "Asthma"},
		},
	}

	once := NormalizeDocument(raw)
	twice := NormalizeDocument(once)
	if !reflect.DeepEqual(once, twice) {
		t.Error("normalize is not idempotent")
	}
}

func TestNormalizeDocument_FillsMissingStructure(t *testing.T) {
	got := NormalizeDocument(Document{
		"patient": map[string]interface{}{"name": "Jordan"},
	})

	if GetString(got, GroupPatient, "name") != "Jordan" {
		t.Error("existing value lost")
	}
	if _, ok := Get(got, GroupPatient, "vitals").(map[string]interface{}); !ok {
		t.Error("missing vitals container not filled")
	}
	if _, ok := Get(got, GroupAdmin, "reson_for_visit").(string); !ok {
		t.Error("legacy admin key missing from normalized document")
	}
	if _, ok := Get(got, GroupMedHist, "ros").(map[string]interface{}); !ok {
		t.Error("ros container not filled")
	}
}

func TestNormalizeDocument_CollapsesMedicationArray(t *testing.T) {
	got := NormalizeDocument(Document{
		"med_hist": map[string]interface{}{
			"medications": []interface{}{
				map[string]interface{}{"brand_substance": "First"},
				map[string]interface{}{"brand_substance": "Second"},
			},
		},
	})

	med, ok := Get(got, GroupMedHist, "medications").(map[string]interface{})
	if !ok {
		t.Fatalf("medications should collapse to a single record, got %T", Get(got, GroupMedHist, "medications"))
	}
	if med["brand_substance"] != "First" {
		t.Errorf("first element should win, got %v", med["brand_substance"])
	}
	if _, ok := med["amount"]; !ok {
		t.Error("collapsed record should be merged over defaults")
	}
}

func TestNormalizeDocument_SingleFamilyHistoryObject(t *testing.T) {
	got := NormalizeDocument(Document{
		"med_hist": map[string]interface{}{
			"family_hist": map[string]interface{}{"relation": "Father"},
		},
	})

	fh, ok := Get(got, GroupMedHist, "family_hist").(map[string]interface{})
	if !ok {
		t.Fatal("family_hist should be a single record")
	}
	if fh["relation"] != "Father" {
		t.Errorf("record value lost: %v", fh)
	}
	if _, ok := fh["family_member"]; !ok {
		t.Error("defaults for the other vocabulary missing")
	}
}

func TestNormalizeDocument_BareValueYieldsDefaults(t *testing.T) {
	got := NormalizeDocument(Document{
		"med_hist": map[string]interface{}{"medications": "aspirin"},
	})
	med, ok := Get(got, GroupMedHist, "medications").(map[string]interface{})
	if !ok {
		t.Fatal("medications should be a record")
	}
	if !reflect.DeepEqual(med, DefaultPrescription()) {
		t.Errorf("bare scalar should yield defaults, got %v", med)
	}
}

func TestNormalizeDocument_DoesNotMutateInput(t *testing.T) {
	raw := Document{"admin": map[string]interface{}{"diagnosis": "x"}}
	NormalizeDocument(raw)
	if len(raw) != 1 {
		t.Error("input document mutated")
	}
}

package script

// NormalizeDocument heals structural drift between what the persistence
// layer returns and the canonical nested shape every renderer and editor
// expects. It fills structural defaults for missing groups and containers,
// resolves the known single-vs-array inconsistencies for
// med_hist.medications and med_hist.family_hist, and is idempotent:
// normalizing an already-normalized document returns an equal document. The
// input is not mutated.
func NormalizeDocument(raw Document) Document {
	out := map[string]interface{}(DefaultDocument())
	if raw == nil {
		return Document(out)
	}

	for group := range out {
		rawGroup, ok := raw[group].(map[string]interface{})
		if !ok {
			continue
		}
		out[group] = shallowDefault(out[group].(map[string]interface{}), rawGroup)
	}

	medHist := out[GroupMedHist].(map[string]interface{})
	// Known drift: medications and family_hist have been stored as a single
	// record, an array of records, or a bare value depending on the document
	// era. At the document level only one record is surfaced; when an array
	// arrives, the first element wins. Multiple entries survive only inside
	// request forms. See DESIGN.md; this collapsing rule is preserved as-is
	// pending product clarification.
	medHist["medications"] = collapseRecord(medHist["medications"], DefaultPrescription())
	medHist["family_hist"] = collapseRecord(medHist["family_hist"], DefaultFamilyHistory())

	return Document(out)
}

// shallowDefault overlays raw keys over defaults one level deep. Keys present
// in raw pass through unchanged, except that nested default containers are
// themselves shallow-defaulted so missing structural keys get filled.
func shallowDefault(defaults, raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(defaults)+len(raw))
	for k, dv := range defaults {
		out[k] = dv
	}
	for k, rv := range raw {
		if rv == nil {
			continue
		}
		dvMap, dvIsMap := out[k].(map[string]interface{})
		rvMap, rvIsMap := rv.(map[string]interface{})
		if dvIsMap && rvIsMap {
			out[k] = shallowDefault(dvMap, rvMap)
			continue
		}
		out[k] = rv
	}
	return out
}

// collapseRecord resolves a single-vs-array field to one record merged over
// its defaults: arrays contribute their first element, single objects merge
// directly, anything else yields the defaults.
func collapseRecord(v interface{}, defaults map[string]interface{}) map[string]interface{} {
	switch kindOf(v) {
	case rawList:
		list := v.([]interface{})
		if len(list) > 0 {
			if first, ok := list[0].(map[string]interface{}); ok {
				return Merge(defaults, first)
			}
		}
		return defaults
	case rawObject:
		return Merge(defaults, v.(map[string]interface{}))
	default:
		return defaults
	}
}

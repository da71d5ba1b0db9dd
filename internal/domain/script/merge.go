package script

import "sort"

// Merge deep-merges incoming over base and returns a new document. For each
// incoming key: plain nested objects recurse, anything else overrides the
// base value unconditionally, unless the incoming value is nil, in which
// case the base value is retained. Arrays are atomic: an incoming array
// wholly replaces the base one, never element-wise merged. Neither input is
// mutated.
func Merge(base, incoming map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		if v == nil {
			continue
		}
		incMap, incIsMap := v.(map[string]interface{})
		baseMap, baseIsMap := out[k].(map[string]interface{})
		if incIsMap && baseIsMap {
			out[k] = Merge(baseMap, incMap)
			continue
		}
		out[k] = v
	}
	return out
}

// titleSources is the fixed precedence chain for the canonical "reason for
// visit / title" value. The reson_for_visit spelling is a legacy key present
// in stored documents and requests; it must stay in the chain.
var titleSources = [][]string{
	{"reason_for_visit"},
	{"reson_for_visit"},
	{"draft_script", GroupAdmin, "reson_for_visit"},
	{"draft_script", GroupPatient, "visit_reason"},
	{"chief_concern"},
	{"diagnosis"},
}

// ResolveTitle derives the single canonical title/reason value from a request
// record or document, first populated source wins. Returns "" only when no
// source is populated.
func ResolveTitle(rec map[string]interface{}) string {
	for _, path := range titleSources {
		if s := GetString(rec, path...); s != "" {
			return s
		}
	}
	return ""
}

// Reconcile folds a version history into the effective document. Versions
// are applied oldest as base, each newer snapshot merged over it as incoming,
// so explicit newer edits win for scalar fields while structural defaults
// from the oldest version survive for anything a newer version never touched.
func Reconcile(versions []VersionEntry) Document {
	if len(versions) == 0 {
		return DefaultDocument()
	}
	sorted := make([]VersionEntry, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VersionNumber < sorted[j].VersionNumber
	})

	acc := map[string]interface{}(NormalizeDocument(sorted[0].Document))
	for _, v := range sorted[1:] {
		acc = Merge(acc, v.Document)
	}
	return Document(acc)
}

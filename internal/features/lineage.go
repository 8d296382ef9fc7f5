package features

import "football-feature-lab/internal/domain"

// BuildLineage classifies every required feature against the table's column sets:
// baseline columns are Direct, columns added by derivation are Derived, the rest Unknown.
func BuildLineage(required []string, table *domain.FeatureTable) domain.FeatureLineage {
	baseline, derived := table.ColumnSets()
	lineage := make(domain.FeatureLineage, len(required))
	for _, f := range required {
		switch {
		case has(baseline, f):
			lineage[f] = domain.FeatureOriginDirect
		case has(derived, f):
			lineage[f] = domain.FeatureOriginDerived
		default:
			lineage[f] = domain.FeatureOriginUnknown
		}
	}
	return lineage
}

func has(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}

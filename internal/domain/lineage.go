package domain

// FeatureOrigin classifies where a required feature comes from.
type FeatureOrigin string

// FeatureOrigin values.
const (
	FeatureOriginDirect  FeatureOrigin = "direct"  // present in the source table
	FeatureOriginDerived FeatureOrigin = "derived" // produced by the derivation stages
	FeatureOriginUnknown FeatureOrigin = "unknown" // neither; resolved to a default
)

// FeatureLineage maps each required feature name to its origin.
type FeatureLineage map[string]FeatureOrigin

// Origin returns the origin of a feature, Unknown when not tracked.
func (l FeatureLineage) Origin(name string) FeatureOrigin {
	if o, ok := l[name]; ok {
		return o
	}
	return FeatureOriginUnknown
}

// Count returns how many features have the given origin.
func (l FeatureLineage) Count(origin FeatureOrigin) int {
	n := 0
	for _, o := range l {
		if o == origin {
			n++
		}
	}
	return n
}

// Package verification checks that cached fixture feature vectors match a fresh
// recomputation from the loaded table.
package verification

import (
	"context"
	"math"
	"sort"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string      // feature name
	Expected interface{} // stored value, nil when absent
	Actual   interface{} // recomputed value, nil when absent
}

// VerificationResult contains the result of verifying a single fixture.
type VerificationResult struct {
	MatchID        int64             // verified match ID
	Match          bool              // true if all features match
	Divergences    []FieldDivergence // list of divergent features
	StoredDigest   string            // payload digest of the stored vector
	ReplayedDigest string            // payload digest of the recomputed vector
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalFixtures     int                  // fixtures verified
	MatchedFixtures   int                  // fixtures that matched
	DivergentFixtures int                  // fixtures with divergences
	UncachedFixtures  int                  // fixtures with no fresh cache entry
	Results           []VerificationResult // individual results
}

// Verifier verifies cached fixture vectors.
type Verifier interface {
	// VerifyFixture compares the cached vector of one match with a recomputation.
	VerifyFixture(ctx context.Context, matchID int64) (*VerificationResult, error)

	// VerifyAll verifies the given matches and returns a report.
	VerifyAll(ctx context.Context, matchIDs []int64) (*VerificationReport, error)
}

// CompareFeatureVectors compares two feature vectors and returns divergences
// ordered by feature name. Uses FloatTolerance for value comparisons.
func CompareFeatureVectors(stored, replayed map[string]float64) []FieldDivergence {
	names := make(map[string]struct{}, len(stored)+len(replayed))
	for k := range stored {
		names[k] = struct{}{}
	}
	for k := range replayed {
		names[k] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for k := range names {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var divergences []FieldDivergence
	for _, name := range sorted {
		s, sok := stored[name]
		r, rok := replayed[name]
		switch {
		case sok && rok:
			if !floatEquals(s, r) {
				divergences = append(divergences, FieldDivergence{Field: name, Expected: s, Actual: r})
			}
		case sok:
			divergences = append(divergences, FieldDivergence{Field: name, Expected: s, Actual: nil})
		default:
			divergences = append(divergences, FieldDivergence{Field: name, Expected: nil, Actual: r})
		}
	}
	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN so a stored NaN does not diverge from itself.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}

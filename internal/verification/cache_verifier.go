package verification

import (
	"context"
	"errors"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/idhash"
	"football-feature-lab/internal/storage"
)

// ErrNotCached is returned when a fixture has no fresh cache entry.
var ErrNotCached = errors.New("fixture not cached")

// Recomputer resolves fixture vectors directly from the loaded table.
type Recomputer interface {
	Recompute(ctx context.Context, matchID int64) (*domain.FixtureFeatures, error)
	CacheKeyFor(f *domain.FixtureFeatures) domain.CacheKey
	DatasetMtime() float64
}

// CacheVerifier implements Verifier against a feature cache.
type CacheVerifier struct {
	source Recomputer
	cache  storage.FeatureCache
}

var _ Verifier = (*CacheVerifier)(nil)

// NewCacheVerifier creates a new CacheVerifier.
func NewCacheVerifier(source Recomputer, cache storage.FeatureCache) *CacheVerifier {
	return &CacheVerifier{source: source, cache: cache}
}

// VerifyFixture recomputes a fixture and compares it with its cache entry.
func (v *CacheVerifier) VerifyFixture(ctx context.Context, matchID int64) (*VerificationResult, error) {
	// 1. Recompute
	replayed, err := v.source.Recompute(ctx, matchID)
	if err != nil {
		return nil, err
	}

	// 2. Load stored entry
	entry, err := v.cache.Get(ctx, v.source.CacheKeyFor(replayed), v.source.DatasetMtime())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrStale) {
			return nil, ErrNotCached
		}
		return nil, err
	}

	// 3. Compare results
	divergences := CompareFeatureVectors(entry.Payload, replayed.Features)
	if entry.MatchID != matchID {
		divergences = append(divergences, FieldDivergence{
			Field:    "match_id",
			Expected: entry.MatchID,
			Actual:   matchID,
		})
	}

	return &VerificationResult{
		MatchID:        matchID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredDigest:   idhash.ComputePayloadDigest(entry.Payload),
		ReplayedDigest: idhash.ComputePayloadDigest(replayed.Features),
	}, nil
}

// VerifyAll verifies each match. Uncached fixtures are counted, not failed.
func (v *CacheVerifier) VerifyAll(ctx context.Context, matchIDs []int64) (*VerificationReport, error) {
	report := &VerificationReport{
		TotalFixtures: len(matchIDs),
		Results:       make([]VerificationResult, 0, len(matchIDs)),
	}

	for _, id := range matchIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := v.VerifyFixture(ctx, id)
		if errors.Is(err, ErrNotCached) {
			report.UncachedFixtures++
			continue
		}
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				MatchID: id,
				Match:   false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentFixtures++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedFixtures++
		} else {
			report.DivergentFixtures++
		}
	}

	return report, nil
}

// VerifyDeterminism recomputes a fixture twice and compares the results.
func VerifyDeterminism(ctx context.Context, source Recomputer, matchID int64) (*VerificationResult, error) {
	first, err := source.Recompute(ctx, matchID)
	if err != nil {
		return nil, err
	}
	second, err := source.Recompute(ctx, matchID)
	if err != nil {
		return nil, err
	}
	divergences := CompareFeatureVectors(first.Features, second.Features)
	return &VerificationResult{
		MatchID:        matchID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredDigest:   idhash.ComputePayloadDigest(first.Features),
		ReplayedDigest: idhash.ComputePayloadDigest(second.Features),
	}, nil
}

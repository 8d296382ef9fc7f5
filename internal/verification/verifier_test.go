package verification

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/storage/memory"
)

const testMtime = 1700000000.5

// stubSource recomputes fixed vectors per match id.
type stubSource struct {
	vectors map[int64]map[string]float64
	calls   int
}

func (s *stubSource) Recompute(_ context.Context, matchID int64) (*domain.FixtureFeatures, error) {
	s.calls++
	v, ok := s.vectors[matchID]
	if !ok {
		return nil, errors.New("fixture not found")
	}
	out := make(map[string]float64, len(v))
	for k, x := range v {
		out[k] = x
	}
	return &domain.FixtureFeatures{MatchID: matchID, HomeTeam: "Arsenal", AwayTeam: "Leeds", Season: "2023", Features: out}, nil
}

// CacheKeyFor keys the stub by match id so every fixture gets its own entry.
func (s *stubSource) CacheKeyFor(f *domain.FixtureFeatures) domain.CacheKey {
	return domain.NewCacheKey("7", f.Season, f.HomeTeam, strconv.FormatInt(f.MatchID, 10))
}

func (s *stubSource) DatasetMtime() float64 { return testMtime }

func cacheVector(t *testing.T, c *memory.FeatureCache, src *stubSource, matchID int64, mtime float64, payload map[string]float64) {
	t.Helper()
	f := &domain.FixtureFeatures{MatchID: matchID, HomeTeam: "Arsenal", AwayTeam: "Leeds", Season: "2023"}
	err := c.Set(context.Background(), &domain.CacheEntry{
		Key:          src.CacheKeyFor(f),
		MatchID:      matchID,
		DatasetMtime: mtime,
		Payload:      payload,
	})
	if err != nil {
		t.Fatalf("cache set: %v", err)
	}
}

func TestCompareFeatureVectors_ExactMatch(t *testing.T) {
	v := map[string]float64{"market_home_edge": 0.35, "home_points_last_5": 9}
	if d := CompareFeatureVectors(v, v); len(d) != 0 {
		t.Errorf("Expected 0 divergences, got %d: %v", len(d), d)
	}
}

func TestCompareFeatureVectors_WithinTolerance(t *testing.T) {
	stored := map[string]float64{"market_entropy": 0.99727}
	replayed := map[string]float64{"market_entropy": 0.99727 + 5e-8}
	if d := CompareFeatureVectors(stored, replayed); len(d) != 0 {
		t.Errorf("Expected 0 divergences within tolerance, got %v", d)
	}
}

func TestCompareFeatureVectors_Divergences(t *testing.T) {
	stored := map[string]float64{"a": 1, "b": 2, "c": math.NaN()}
	replayed := map[string]float64{"a": 1.1, "c": math.NaN(), "d": 4}

	d := CompareFeatureVectors(stored, replayed)
	if len(d) != 3 {
		t.Fatalf("Expected 3 divergences, got %d: %v", len(d), d)
	}
	if d[0].Field != "a" || d[1].Field != "b" || d[2].Field != "d" {
		t.Errorf("unexpected order: %v", d)
	}
	if d[1].Actual != nil {
		t.Errorf("expected nil Actual for missing replayed value, got %v", d[1].Actual)
	}
	if d[2].Expected != nil {
		t.Errorf("expected nil Expected for missing stored value, got %v", d[2].Expected)
	}
}

func TestCacheVerifier_VerifyFixture(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{vectors: map[int64]map[string]float64{1: {"a": 1, "b": 2}}}
	cache := memory.NewFeatureCache()
	cacheVector(t, cache, src, 1, testMtime, map[string]float64{"a": 1, "b": 2})

	res, err := NewCacheVerifier(src, cache).VerifyFixture(ctx, 1)
	if err != nil {
		t.Fatalf("VerifyFixture failed: %v", err)
	}
	if !res.Match {
		t.Errorf("expected match, got divergences %v", res.Divergences)
	}
	if res.StoredDigest != res.ReplayedDigest {
		t.Error("matching vectors should share a digest")
	}
}

func TestCacheVerifier_VerifyFixture_NotCached(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{vectors: map[int64]map[string]float64{1: {"a": 1}, 2: {"a": 1}}}
	cache := memory.NewFeatureCache()
	cacheVector(t, cache, src, 2, testMtime+1, map[string]float64{"a": 1})

	v := NewCacheVerifier(src, cache)
	if _, err := v.VerifyFixture(ctx, 1); !errors.Is(err, ErrNotCached) {
		t.Errorf("expected ErrNotCached for missing entry, got %v", err)
	}
	if _, err := v.VerifyFixture(ctx, 2); !errors.Is(err, ErrNotCached) {
		t.Errorf("expected ErrNotCached for stale entry, got %v", err)
	}
}

func TestCacheVerifier_VerifyAll(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{vectors: map[int64]map[string]float64{
		1: {"a": 1},
		2: {"a": 2},
		3: {"a": 3},
	}}
	cache := memory.NewFeatureCache()
	cacheVector(t, cache, src, 1, testMtime, map[string]float64{"a": 1})
	cacheVector(t, cache, src, 2, testMtime, map[string]float64{"a": 2.5})

	report, err := NewCacheVerifier(src, cache).VerifyAll(ctx, []int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}

	if report.TotalFixtures != 4 {
		t.Errorf("expected 4 total, got %d", report.TotalFixtures)
	}
	if report.MatchedFixtures != 1 {
		t.Errorf("expected 1 matched, got %d", report.MatchedFixtures)
	}
	// match 2 diverges, match 4 cannot be recomputed
	if report.DivergentFixtures != 2 {
		t.Errorf("expected 2 divergent, got %d", report.DivergentFixtures)
	}
	if report.UncachedFixtures != 1 {
		t.Errorf("expected 1 uncached, got %d", report.UncachedFixtures)
	}
}

func TestVerifyDeterminism(t *testing.T) {
	src := &stubSource{vectors: map[int64]map[string]float64{1: {"a": 1, "b": 0.5}}}
	res, err := VerifyDeterminism(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("VerifyDeterminism failed: %v", err)
	}
	if !res.Match {
		t.Errorf("expected deterministic result, got %v", res.Divergences)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 recomputations, got %d", src.calls)
	}
}

func TestFloatEquals(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{1.0, 1.0, true},
		{1.0, 1.0 + 1e-8, true},
		{1.0, 1.0 + 1e-6, false},
		{math.NaN(), math.NaN(), true},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		if got := floatEquals(tt.a, tt.b); got != tt.want {
			t.Errorf("floatEquals(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

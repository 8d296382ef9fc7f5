package domain

import (
	"math"
	"strings"
)

// MtimeTolerance is the allowed drift between a stored and current dataset mtime.
const MtimeTolerance = 1e-6

// CacheKey identifies a cached fixture vector. Components are normalized
// (trimmed, lower-cased) by NewCacheKey.
type CacheKey struct {
	DatasetVersion string
	Season         string
	Home           string
	Away           string
}

// NewCacheKey builds a normalized cache key.
func NewCacheKey(datasetVersion, season, home, away string) CacheKey {
	return CacheKey{
		DatasetVersion: datasetVersion,
		Season:         NormalizeName(season),
		Home:           NormalizeName(home),
		Away:           NormalizeName(away),
	}
}

// NormalizeName trims and lower-cases a team or season name.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CacheEntry is a persisted fixture feature vector.
type CacheEntry struct {
	Key          CacheKey
	MatchID      int64
	DatasetMtime float64 // source dataset modification time, unix seconds
	Payload      map[string]float64
}

// FreshFor reports whether the entry was written against the given dataset mtime.
func (e *CacheEntry) FreshFor(datasetMtime float64) bool {
	return math.Abs(e.DatasetMtime-datasetMtime) <= MtimeTolerance
}

package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"

	"football-feature-lab/internal/domain"
)

// ComputeCacheKeyID computes a deterministic id for a cache key using SHA256.
// Each part is length-prefixed ("<len>:<part>") so separators inside team
// names cannot make two keys collide.
// Returns hex-encoded hash (64 characters).
func ComputeCacheKeyID(key domain.CacheKey) string {
	var data []byte
	for _, part := range []string{key.DatasetVersion, key.Season, key.Home, key.Away} {
		data = strconv.AppendInt(data, int64(len(part)), 10)
		data = append(data, ':')
		data = append(data, part...)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ComputePayloadDigest hashes a feature vector independent of map order.
// Each feature contributes "name=bits;" with the IEEE-754 bits of its value,
// so two vectors share a digest only when every value is bit-identical.
func ComputePayloadDigest(features map[string]float64) string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(strconv.FormatUint(math.Float64bits(features[name]), 16)))
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

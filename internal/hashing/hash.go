// Package hashing implements the SDK's three hashing duties: DJB2 for
// sdk_key identity, SHA-256-derived percentage bucketing for rule
// pass/fail, and a fast non-cryptographic hash (xxhash) for internal paths
// where exact bit-compatibility with other SDKs is not required.
//
// The two SHA-256 formulas must match the reference implementation
// byte-for-byte; see original_source and spec.md §4.3 scenario 2.
package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/cespare/xxhash/v2"
)

// DJB2 hashes sdk_key the way the DCS response's hashed_sdk_keys_to_app_ids
// map is keyed.
func DJB2(s string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(s); i++ {
		h = ((h << 5) + h) + uint64(s[i]) // h*33 + c
	}
	return h
}

// bigMod10000 interprets the first 16 bytes of a SHA-256 digest as an
// unsigned big-endian 128-bit integer and reduces it mod 10000.
func bigMod10000(sum [32]byte) uint64 {
	n := new(big.Int).SetBytes(sum[:16])
	mod := big.NewInt(10000)
	n.Mod(n, mod)
	return n.Uint64()
}

// PassPercentageBucket computes the spec.md §4.3 bucketing key:
// sha256(salt + "." + ruleSalt + "." + unitID) as an unsigned big-endian
// u128, mod 10000. The caller compares the result against
// passPercentage*100.
func PassPercentageBucket(salt, ruleSalt, unitID string) uint64 {
	key := salt + "." + ruleSalt + "." + unitID
	sum := sha256.Sum256([]byte(key))
	return bigMod10000(sum)
}

// PassesPercentage reports whether pass_percentage (0-100, fractional
// allowed) passes for the given salts and unit id.
func PassesPercentage(salt, ruleSalt, unitID string, passPercentage float64) bool {
	if unitID == "" {
		return false
	}
	bucket := PassPercentageBucket(salt, ruleSalt, unitID)
	threshold := uint64(passPercentage * 100)
	return bucket < threshold
}

// SamplingKeyMod hashes an arbitrary sampling key with SHA-256 and reduces
// it mod rate, per spec.md §4.4 ("sha256(sampling_key) mod rate == 0 keeps
// the event"). rate == 0 never keeps the event (avoids a division by zero
// and matches "no sampling configured" semantics upstream).
func SamplingKeyMod(key string, rate uint64) uint64 {
	if rate == 0 {
		return 1 // non-zero so SamplingKeyMod(...) == 0 is always false
	}
	sum := sha256.Sum256([]byte(key))
	n := binary.BigEndian.Uint64(sum[:8])
	return n % rate
}

// SegmentMember hashes a subject id with SHA-256 for id-list/segment
// membership checks (spec.md's in_segment_list operator).
func SegmentMember(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hexEncode(sum[:])
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

// FastHash64 is the internal non-cryptographic hash for paths with no
// cross-SDK compatibility requirement. The sampling processor's dedupe and
// first-seen sets key on raw strings and do not call it. Kept separate from
// the SHA-256 paths above, which must stay bit-compatible across languages.
func FastHash64(s string) uint64 {
	return xxhash.Sum64String(s)
}

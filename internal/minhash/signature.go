package minhash

import "github.com/spaolacci/murmur3"

// maxUint32 is the signature value assigned to an empty shingle set (the
// component contract's boundary behavior: a document shorter than one
// shingle gets H copies of the maximum 32-bit value, so it only collides
// with other empty-shingle documents, and exact Jaccard between two empty
// sets is defined as 0 — never unified).
const maxUint32 = ^uint32(0)

// Signature computes the length-H MinHash signature of shingles: for each
// seed in [0, H), the minimum 32-bit murmur3 hash of any shingle under
// that seed. Mirrors compute_minhash_signature's per-seed min() reduction,
// using MurmurHash3 x86_32 as the reference hash names in the component
// contract.
func Signature(shingles map[string]struct{}, numHashes int) []uint32 {
	sig := make([]uint32, numHashes)
	if len(shingles) == 0 {
		for i := range sig {
			sig[i] = maxUint32
		}
		return sig
	}
	for seed := 0; seed < numHashes; seed++ {
		min := maxUint32
		for shingle := range shingles {
			h := murmur3.Sum32WithSeed([]byte(shingle), uint32(seed))
			if h < min {
				min = h
			}
		}
		sig[seed] = min
	}
	return sig
}

// JaccardSimilarity returns the exact Jaccard similarity of two shingle
// sets: |intersection| / |union|, or 0 if both sets are empty.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, big := a, b
	if len(a) > len(b) {
		small, big = b, a
	}
	inter := 0
	for s := range small {
		if _, ok := big[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Package minhash implements the near-duplicate detector (C7): shingle
// extraction, MinHash signatures, banded LSH bucketing, exact-Jaccard
// verification, and union-find equivalence classes.
//
// Structure, preprocessing, and banding are ported line-for-line from
// original_source/cs336_data/minhash_deduplication.py's
// preprocess/compute_minhash_signature/minhash_deduplicate functions. The
// union-find arena/index layout (internal/minhash/unionfind.go) follows
// SPEC_FULL.md's "back-references -> arena + index" redesign note, and the
// worker/collector shape for computing signatures in parallel is grounded
// on the dupedog verifier's jobCh/resultsCh pool
// (other_examples/.../dupedog__internal-verifier-verifier.go.go).
package minhash

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Preprocess lowercases text, collapses whitespace runs to single spaces,
// strips Unicode punctuation, and NFD-normalizes before dropping combining
// marks — the four-step pipeline from the component contract, ported from
// preprocess() in the source.
func Preprocess(text string) string {
	text = strings.ToLower(text)
	text = collapseWhitespace(text)
	text = stripPunctuation(text)
	text = stripCombiningMarks(norm.NFD.String(text))
	return text
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripCombiningMarks(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Shingles tokenizes preprocessed text on whitespace and returns the set of
// contiguous k-token shingles, joined by single spaces. A document with
// fewer than k tokens has an empty shingle set, per the component
// contract's boundary behavior.
func Shingles(preprocessed string, k int) map[string]struct{} {
	tokens := strings.Fields(preprocessed)
	set := make(map[string]struct{})
	for i := 0; i+k <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+k], " ")] = struct{}{}
	}
	return set
}

// Package dedup implements the two-phase exact-line deduplication engine
// (C6): a shared fixed-size saturating counter table built once in Phase A
// and consulted, unchanged, in Phase B.
//
// The source (original_source/cs336_data/exact_deduplication.py) holds
// line_count as a single-process Python list shared by sequential passes.
// SPEC_FULL.md's redesign decision replaces that with a goroutine pool
// racing CAS-based increments into a single Go slice — the component
// contract only requires monotonicity and tolerates lost increments under
// a relaxed read-modify-write, but Go's race detector treats an
// unsynchronized concurrent byte write as a reportable race regardless of
// whether the spec tolerates the lost update, so Table packs four 8-bit
// counters into each atomic.Uint32 word and updates them with a CAS loop
// instead of plain bytes (see Table.Bump).
package dedup

import "sync/atomic"

// Table is the shared saturating counter array described in the data
// model: N 8-bit counters, each capped at Cap. One Table instance exists
// per dedup run; the CLI's dedup command owns its lifetime and passes it
// by reference into PhaseA and PhaseB.
type Table struct {
	words []atomic.Uint32 // four 8-bit counters per word, slot i in byte i%4 of word i/4
	cap   uint8
	n     uint64
}

// NewTable allocates a zero-initialized table of n saturating counters,
// each capped at cap. Per the component contract, cap >= 2 is required for
// the Phase-B "== 1 vs != 1" decision to mean anything; callers should
// reject cap < 2 before calling NewTable (the CLI flag validation does
// this — see cmd/corpusctl).
func NewTable(n uint64, cap uint8) *Table {
	return &Table{words: make([]atomic.Uint32, (n+3)/4), cap: cap, n: n}
}

// Size returns the number of counter slots, N.
func (t *Table) Size() uint64 { return t.n }

// Bump increments the counter at slot h, saturating at t.cap. The
// load-compare-CAS loop is the atomic equivalent of the component
// contract's "atomicity of a single byte increment is not required"
// allowance: a failed CAS (a concurrent Bump of any of the four slots
// sharing the word) retries against the latest value rather than dropping
// the increment, so no increment below the cap is ever lost. The slot's
// value only ever moves up, never down, and any line occurring twice ends
// Phase A at count >= 2.
func (t *Table) Bump(h uint64) {
	slot := h % t.n
	word, shift := &t.words[slot/4], (slot%4)*8
	for {
		old := word.Load()
		if uint8(old>>shift) >= t.cap {
			return
		}
		if word.CompareAndSwap(old, old+1<<shift) {
			return
		}
	}
}

// Get returns the current saturating count at slot h.
func (t *Table) Get(h uint64) uint8 {
	slot := h % t.n
	return uint8(t.words[slot/4].Load() >> ((slot % 4) * 8))
}

// IsUnique reports whether the line hashing to h was seen exactly once in
// Phase A (the only condition Phase B checks).
func (t *Table) IsUnique(h uint64) bool {
	return t.Get(h) == 1
}

package dedup

import "github.com/zeebo/xxh3"

// fingerprint64 is the line hash referenced throughout the component
// contract as `hash(line) % N`. The source uses Python's built-in `hash()`,
// a process-salted 64-bit hash; xxh3 gives a fast, well-distributed 64-bit
// hash with no such per-process salt, which only matters here because it
// makes dedup runs reproducible across processes — a strict improvement
// the contract's determinism section does not forbid.
func fingerprint64(line string) uint64 {
	return xxh3.HashString(line)
}

// Package metrics provides lightweight, lock-minimal performance counters
// for the corpus pipeline.
//
// Counters use sync/atomic so hot paths (per-record predicate evaluation,
// per-line hashing) incur no mutex contention. Latency statistics use a
// single mutex per dimension; they are updated at most once per shard.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all runtime counters for one pipeline run.
// The zero value is valid and ready to use; prefer New() for clarity.
type Metrics struct {
	// Record-level counters (C4/C5)
	RecordsTotal    atomic.Int64
	RecordsPassed   atomic.Int64
	RecordsFiltered atomic.Int64

	// Dedup counters (C6)
	LinesCounted  atomic.Int64
	LinesRetained atomic.Int64
	LinesRemoved  atomic.Int64

	// MinHash counters (C7)
	CandidatePairs atomic.Int64
	PairsVerified  atomic.Int64
	PairsUnified   atomic.Int64

	// Worker failures (C5/C6/C7)
	WorkerCrashes atomic.Int64

	// Fetch counters (C9)
	FetchAttempts atomic.Int64
	FetchSuccess  atomic.Int64
	FetchRetries  atomic.Int64

	shardMu   sync.Mutex
	shardStat latencyStats

	startTime time.Time
}

// New returns a new Metrics with the start time recorded.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordShardLatency records the wall-clock duration of one worker's pass
// over one shard.
func (m *Metrics) RecordShardLatency(d time.Duration) {
	m.shardMu.Lock()
	m.shardStat.record(float64(d.Microseconds()) / 1000.0)
	m.shardMu.Unlock()
}

// Snapshot returns a point-in-time copy of all metrics, safe for JSON encoding.
func (m *Metrics) Snapshot() Snapshot {
	m.shardMu.Lock()
	shard := m.shardStat.snapshot()
	m.shardMu.Unlock()

	return Snapshot{
		Records: RecordSnapshot{
			Total:    m.RecordsTotal.Load(),
			Passed:   m.RecordsPassed.Load(),
			Filtered: m.RecordsFiltered.Load(),
		},
		Dedup: DedupSnapshot{
			LinesCounted:  m.LinesCounted.Load(),
			LinesRetained: m.LinesRetained.Load(),
			LinesRemoved:  m.LinesRemoved.Load(),
		},
		MinHash: MinHashSnapshot{
			CandidatePairs: m.CandidatePairs.Load(),
			PairsVerified:  m.PairsVerified.Load(),
			PairsUnified:   m.PairsUnified.Load(),
		},
		Fetch: FetchSnapshot{
			Attempts: m.FetchAttempts.Load(),
			Success:  m.FetchSuccess.Load(),
			Retries:  m.FetchRetries.Load(),
		},
		WorkerCrashes: m.WorkerCrashes.Load(),
		ShardLatencyMs: shard,
		UptimeSecs:     time.Since(m.startTime).Seconds(),
	}
}

// --- JSON-serialisable snapshot types ---

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Records        RecordSnapshot  `json:"records"`
	Dedup          DedupSnapshot   `json:"dedup"`
	MinHash        MinHashSnapshot `json:"minhash"`
	Fetch          FetchSnapshot   `json:"fetch"`
	WorkerCrashes  int64           `json:"workerCrashes"`
	ShardLatencyMs LatencySnapshot `json:"shardLatencyMs"`
	UptimeSecs     float64         `json:"uptimeSecs"`
}

// RecordSnapshot holds C4/C5 record-level counters.
type RecordSnapshot struct {
	Total    int64 `json:"total"`
	Passed   int64 `json:"passed"`
	Filtered int64 `json:"filtered"`
}

// DedupSnapshot holds C6 exact-line dedup counters.
type DedupSnapshot struct {
	LinesCounted  int64 `json:"linesCounted"`
	LinesRetained int64 `json:"linesRetained"`
	LinesRemoved  int64 `json:"linesRemoved"`
}

// MinHashSnapshot holds C7 near-dedup counters.
type MinHashSnapshot struct {
	CandidatePairs int64 `json:"candidatePairs"`
	PairsVerified  int64 `json:"pairsVerified"`
	PairsUnified   int64 `json:"pairsUnified"`
}

// FetchSnapshot holds C9 fetcher counters.
type FetchSnapshot struct {
	Attempts int64 `json:"attempts"`
	Success  int64 `json:"success"`
	Retries  int64 `json:"retries"`
}

// LatencySnapshot is a min/mean/max summary for one latency dimension.
type LatencySnapshot struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	MaxMs  float64 `json:"maxMs"`
}

// --- internal accumulator ---

type latencyStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *latencyStats) record(ms float64) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *latencyStats) snapshot() LatencySnapshot {
	if s.count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count:  s.count,
		MinMs:  round2(s.min),
		MeanMs: round2(s.sum / float64(s.count)),
		MaxMs:  round2(s.max),
	}
}

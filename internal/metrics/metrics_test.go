package metrics

import (
	"testing"
	"time"
)

func TestNew_StartTimeSet(t *testing.T) {
	before := time.Now()
	m := New()
	after := time.Now()

	if m.startTime.Before(before) || m.startTime.After(after) {
		t.Errorf("startTime %v not in expected range [%v, %v]", m.startTime, before, after)
	}
}

func TestZeroValue_SnapshotSafe(t *testing.T) {
	var m Metrics
	s := m.Snapshot()
	if s.Records.Total != 0 {
		t.Errorf("expected 0 total records, got %d", s.Records.Total)
	}
}

func TestRecordCounters(t *testing.T) {
	m := New()
	m.RecordsTotal.Add(10)
	m.RecordsPassed.Add(7)
	m.RecordsFiltered.Add(3)

	s := m.Snapshot()
	if s.Records.Total != 10 {
		t.Errorf("Total: got %d, want 10", s.Records.Total)
	}
	if s.Records.Passed != 7 {
		t.Errorf("Passed: got %d, want 7", s.Records.Passed)
	}
	if s.Records.Filtered != 3 {
		t.Errorf("Filtered: got %d, want 3", s.Records.Filtered)
	}
}

func TestDedupCounters(t *testing.T) {
	m := New()
	m.LinesCounted.Add(1000)
	m.LinesRetained.Add(600)
	m.LinesRemoved.Add(400)

	s := m.Snapshot()
	if s.Dedup.LinesCounted != 1000 {
		t.Errorf("LinesCounted: got %d, want 1000", s.Dedup.LinesCounted)
	}
	if s.Dedup.LinesRetained != 600 {
		t.Errorf("LinesRetained: got %d, want 600", s.Dedup.LinesRetained)
	}
	if s.Dedup.LinesRemoved != 400 {
		t.Errorf("LinesRemoved: got %d, want 400", s.Dedup.LinesRemoved)
	}
}

func TestMinHashCounters(t *testing.T) {
	m := New()
	m.CandidatePairs.Add(50)
	m.PairsVerified.Add(50)
	m.PairsUnified.Add(12)

	s := m.Snapshot()
	if s.MinHash.CandidatePairs != 50 {
		t.Errorf("CandidatePairs: got %d, want 50", s.MinHash.CandidatePairs)
	}
	if s.MinHash.PairsUnified != 12 {
		t.Errorf("PairsUnified: got %d, want 12", s.MinHash.PairsUnified)
	}
}

func TestFetchCounters(t *testing.T) {
	m := New()
	m.FetchAttempts.Add(20)
	m.FetchSuccess.Add(18)
	m.FetchRetries.Add(5)

	s := m.Snapshot()
	if s.Fetch.Attempts != 20 {
		t.Errorf("Attempts: got %d, want 20", s.Fetch.Attempts)
	}
	if s.Fetch.Success != 18 {
		t.Errorf("Success: got %d, want 18", s.Fetch.Success)
	}
	if s.Fetch.Retries != 5 {
		t.Errorf("Retries: got %d, want 5", s.Fetch.Retries)
	}
}

func TestWorkerCrashCounter(t *testing.T) {
	m := New()
	m.WorkerCrashes.Add(2)
	s := m.Snapshot()
	if s.WorkerCrashes != 2 {
		t.Errorf("WorkerCrashes: got %d, want 2", s.WorkerCrashes)
	}
}

func TestRecordShardLatency_SingleSample(t *testing.T) {
	m := New()
	m.RecordShardLatency(100 * time.Millisecond)

	s := m.Snapshot()
	if s.ShardLatencyMs.Count != 1 {
		t.Errorf("Count: got %d, want 1", s.ShardLatencyMs.Count)
	}
	// 100ms should be recorded as ~100ms
	if s.ShardLatencyMs.MinMs < 90 || s.ShardLatencyMs.MinMs > 110 {
		t.Errorf("MinMs: got %f, want ~100", s.ShardLatencyMs.MinMs)
	}
}

func TestRecordShardLatency_MinMaxMean(t *testing.T) {
	m := New()
	m.RecordShardLatency(50 * time.Millisecond)
	m.RecordShardLatency(150 * time.Millisecond)
	m.RecordShardLatency(100 * time.Millisecond)

	s := m.Snapshot()
	ls := s.ShardLatencyMs
	if ls.Count != 3 {
		t.Errorf("Count: got %d, want 3", ls.Count)
	}
	if ls.MinMs > 60 {
		t.Errorf("MinMs too high: %f", ls.MinMs)
	}
	if ls.MaxMs < 140 {
		t.Errorf("MaxMs too low: %f", ls.MaxMs)
	}
	// mean ~100ms
	if ls.MeanMs < 90 || ls.MeanMs > 110 {
		t.Errorf("MeanMs: got %f, want ~100", ls.MeanMs)
	}
}

func TestSnapshotLatency_EmptyIsZeroValue(t *testing.T) {
	m := New()
	s := m.Snapshot()
	if s.ShardLatencyMs.Count != 0 {
		t.Errorf("empty shard latency count should be 0")
	}
}

func TestSnapshot_UptimePositive(t *testing.T) {
	m := New()
	time.Sleep(5 * time.Millisecond)
	s := m.Snapshot()
	if s.UptimeSecs <= 0 {
		t.Errorf("UptimeSecs should be positive, got %f", s.UptimeSecs)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		input float64
		want  float64
	}{
		{1.236, 1.24},
		{1.234, 1.23},
		{100.0, 100.0},
		{0.0, 0.0},
	}
	for _, c := range cases {
		got := round2(c.input)
		if got != c.want {
			t.Errorf("round2(%f) = %f, want %f", c.input, got, c.want)
		}
	}
}

func TestLatencyStats_Record(t *testing.T) {
	var s latencyStats
	s.record(10)
	s.record(20)
	s.record(15)

	snap := s.snapshot()
	if snap.Count != 3 {
		t.Errorf("Count: got %d, want 3", snap.Count)
	}
	if snap.MinMs != 10 {
		t.Errorf("MinMs: got %f, want 10", snap.MinMs)
	}
	if snap.MaxMs != 20 {
		t.Errorf("MaxMs: got %f, want 20", snap.MaxMs)
	}
	if snap.MeanMs != 15 {
		t.Errorf("MeanMs: got %f, want 15", snap.MeanMs)
	}
}

func TestLatencyStats_Empty(t *testing.T) {
	var s latencyStats
	snap := s.snapshot()
	if snap.Count != 0 || snap.MinMs != 0 || snap.MaxMs != 0 || snap.MeanMs != 0 {
		t.Errorf("empty stats snapshot should be zero, got %+v", snap)
	}
}

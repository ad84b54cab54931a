package minhash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webcorpus/internal/logger"
	"webcorpus/internal/metrics"
	"webcorpus/internal/record"
)

// sentences builds n numbered sentences, so each one contributes its own
// shingles; with alt set, the middle sentence is replaced by a different one.
func sentences(n int, alt bool) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if alt && i == n/2 {
			b.WriteString("this sentence differs from the original document entirely. ")
			continue
		}
		fmt.Fprintf(&b, "sentence %d says the quick brown fox %d jumps over the lazy dog %d. ", i, i, i)
	}
	return b.String()
}

func writeShard(t *testing.T, path, content string) {
	t.Helper()
	sink, err := record.NewSink(path)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if err := sink.Write(record.Record{Type: record.TypeConversion, URL: "http://x", ID: "1", Content: content}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestRun_S4_NearDuplicatesAreUnified mirrors spec scenario S4: two
// documents differing only in one sentence out of 100, with H=100, B=20,
// k=5, threshold=0.8, must be unified into one class.
func TestRun_S4_NearDuplicatesAreUnified(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	a := filepath.Join(dir, "a.shard")
	b := filepath.Join(dir, "b.shard")
	writeShard(t, a, sentences(100, false))
	writeShard(t, b, sentences(100, true))

	log := logger.New("MINHASH", "error")
	m := metrics.New()
	cfg := Config{NumHashes: 100, NumBands: 20, NgramSize: 5, JaccardThreshold: 0.8}

	if err := Run(log, m, []string{a, b}, outDir, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d output shards, want 1 (near-duplicates unified)", len(entries))
	}
	if entries[0].Name() != "a.shard" {
		t.Errorf("representative = %q, want %q (first inserted)", entries[0].Name(), "a.shard")
	}
}

func TestRun_DistinctDocumentsAreNotUnified(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	a := filepath.Join(dir, "a.shard")
	b := filepath.Join(dir, "b.shard")
	writeShard(t, a, "apples bananas cherries dates elderberries figs grapes")
	writeShard(t, b, "zebras yaks xylophones wolves vultures turtles snakes")

	log := logger.New("MINHASH", "error")
	m := metrics.New()
	cfg := Config{NumHashes: 100, NumBands: 20, NgramSize: 5, JaccardThreshold: 0.8}

	if err := Run(log, m, []string{a, b}, outDir, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d output shards, want 2 (distinct documents kept separately)", len(entries))
	}
}

func TestRun_RejectsBandsNotDividingHashes(t *testing.T) {
	log := logger.New("MINHASH", "error")
	m := metrics.New()
	cfg := Config{NumHashes: 10, NumBands: 3, NgramSize: 5, JaccardThreshold: 0.8}
	if err := Run(log, m, nil, t.TempDir(), cfg); err == nil {
		t.Error("expected error when numBands does not divide numHashes")
	}
}

package dedup

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"webcorpus/internal/logger"
	"webcorpus/internal/record"
	"webcorpus/internal/shardworker"
)

// ShardFailure pairs a shard path with the error that crashed its worker,
// matching the WorkerCrash error kind: logged, shard skipped, run
// continues.
type ShardFailure struct {
	Shard string
	Err   error
}

// PhaseA counts every line of every shard into table, fanned out over a
// bounded goroutine pool. It returns once every shard has been fully read,
// which is the happens-before boundary the component contract requires:
// PhaseA's return guarantees all of its goroutines have exited, so every
// Bump they performed is visible to whatever calls PhaseB next.
func PhaseA(log *logger.Logger, shards []string, table *Table, workers int) []ShardFailure {
	return fanOut(log, "count", shards, workers, func(path string) error {
		return countShard(path, table)
	})
}

// PhaseB re-reads every shard, retains only lines whose table count is
// exactly 1, drops any record that becomes entirely whitespace, and writes
// survivors to outDir/<basename>. It returns the merged counters plus any
// shard failures.
func PhaseB(log *logger.Logger, shards []string, outDir string, table *Table, workers int) (*shardworker.Counters, []ShardFailure) {
	var mu sync.Mutex
	total := shardworker.NewCounters()

	failures := fanOut(log, "emit", shards, workers, func(path string) error {
		out := filepath.Join(outDir, filepath.Base(path))
		counts, err := emitShard(path, out, table)
		if err != nil {
			return err
		}
		mu.Lock()
		total.Merge(counts)
		mu.Unlock()
		return nil
	})

	return total, failures
}

// fanOut runs fn once per shard across a bounded goroutine pool, recovering
// panics into ShardFailure entries so one bad shard never aborts the run.
func fanOut(log *logger.Logger, stage string, shards []string, workers int, fn func(path string) error) []ShardFailure {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(shards) {
		workers = len(shards)
	}
	if workers < 1 {
		workers = 1
	}

	jobCh := make(chan string, len(shards))
	failCh := make(chan ShardFailure, len(shards))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for shard := range jobCh {
				if err := runGuarded(shard, fn); err != nil {
					failCh <- ShardFailure{Shard: shard, Err: err}
				}
			}
		}()
	}

	for _, s := range shards {
		jobCh <- s
	}
	close(jobCh)
	wg.Wait()
	close(failCh)

	var failures []ShardFailure
	for f := range failCh {
		log.Errorf(stage, "%s: %v", f.Shard, f.Err)
		failures = append(failures, f)
	}
	return failures
}

func runGuarded(shard string, fn func(path string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return fn(shard)
}

// countShard streams one shard's records, splits each on "\n" (no
// keep-ends), and bumps table at each line's fingerprint.
func countShard(path string, table *Table) error {
	reader, err := record.OpenShard(path)
	if err != nil {
		return fmt.Errorf("dedup: open %s: %w", path, err)
	}
	defer reader.Close()

	for {
		rec, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("dedup: read %s: %w", path, err)
		}
		for _, line := range strings.Split(rec.Content, "\n") {
			table.Bump(fingerprint64(line))
		}
	}
}

// emitShard re-reads one shard, keeps only lines whose table entry is
// exactly 1, drops records that become entirely whitespace, and writes
// survivors to outPath. Returns per-shard total/filtered/passed counters.
func emitShard(path, outPath string, table *Table) (*shardworker.Counters, error) {
	counts := shardworker.NewCounters()
	counts.Add("total", 0)
	counts.Add("passed", 0)
	counts.Add("filtered", 0)

	reader, err := record.OpenShard(path)
	if err != nil {
		return counts, fmt.Errorf("dedup: open %s: %w", path, err)
	}
	defer reader.Close()

	sink, err := record.NewSink(outPath)
	if err != nil {
		return counts, fmt.Errorf("dedup: create %s: %w", outPath, err)
	}
	defer sink.Close()

	for {
		rec, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return counts, fmt.Errorf("dedup: read %s: %w", path, err)
		}
		counts.Add("total", 1)

		lines := strings.Split(rec.Content, "\n")
		kept := lines[:0:0]
		for _, line := range lines {
			if table.IsUnique(fingerprint64(line)) {
				kept = append(kept, line)
			}
		}

		joined := strings.Join(kept, "\n")
		if strings.TrimSpace(joined) == "" {
			counts.Add("filtered", 1)
			continue
		}

		rec.Content = joined
		if err := sink.Write(rec); err != nil {
			return counts, fmt.Errorf("dedup: write %s: %w", outPath, err)
		}
		counts.Add("passed", 1)
	}

	return counts, nil
}

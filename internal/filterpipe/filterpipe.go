// Package filterpipe fans the shard worker (internal/shardworker) out over
// a pool of goroutines, one shard per unit of work, and aggregates the
// per-shard counters each worker returns into a single run-wide tally.
//
// The pool shape is grounded on the dupedog verifier's worker/collector
// split: a fixed pool of worker goroutines consumes jobs from a buffered
// channel, a single collector goroutine drains results, and two helper
// goroutines close the channels once their producers are done. Unlike
// dupedog's verifier, there is no job-spawning mid-flight here — one shard
// is one job, start to finish — so the pending WaitGroup collapses to a
// plain sized job channel.
package filterpipe

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"webcorpus/internal/logger"
	"webcorpus/internal/predicate"
	"webcorpus/internal/predictor"
	"webcorpus/internal/shardworker"
)

// Result is one shard's outcome: either counters from a completed pass, or
// an error if the shard worker crashed. A crashed shard yields no output
// file but does not abort the run (component contract C5).
type Result struct {
	ShardIn string
	Err     error
	Counts  *shardworker.Counters
}

// ChainFactory builds one predicate.Chain backed by its own
// predictor.Registry. Run calls it exactly once per worker goroutine, never
// more and never shared, so every goroutine loads its classifier models
// into a private, process-local Registry — the component contract's C2
// cache is "strictly process-local; never shared across workers" because
// model handles are not guaranteed thread-safe in general.
type ChainFactory func() (predicate.Chain, *predictor.Registry, error)

// Run calls newChain once per worker goroutine and fans the resulting
// chains out over inputShards, writing one output shard per input into
// outDir, and returns the merged counters plus the list of shards that
// crashed. workers <= 0 selects min(NumCPU, ceil(len(inputShards)/2)), per
// the orchestrator's over-subscription guard.
func Run(ctx context.Context, log *logger.Logger, inputShards []string, outDir string, newChain ChainFactory, workers int) (*shardworker.Counters, []Result) {
	if workers <= 0 {
		workers = defaultWorkers(len(inputShards))
	}
	if workers > len(inputShards) {
		workers = len(inputShards)
	}
	if workers < 1 {
		workers = 1
	}

	jobCh := make(chan string, len(inputShards))
	resultsCh := make(chan Result, len(inputShards))

	var workerWg sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()

			// Each worker goroutine gets its own chain and Registry,
			// built once here and reused for every shard this goroutine
			// processes — never touched by any other goroutine.
			chain, reg, err := newChain()
			if err != nil {
				for shardIn := range jobCh {
					resultsCh <- Result{ShardIn: shardIn, Err: fmt.Errorf("build predicate chain: %w", err)}
				}
				return
			}
			defer reg.Close() //nolint:errcheck // best-effort close of this worker's model store on exit

			for shardIn := range jobCh {
				resultsCh <- processOne(ctx, shardIn, outDir, chain)
			}
		}()
	}

	go func() {
		for _, s := range inputShards {
			jobCh <- s
		}
		close(jobCh)
	}()

	go func() {
		workerWg.Wait()
		close(resultsCh)
	}()

	total := shardworker.NewCounters()
	var failures []Result
	done := 0
	for r := range resultsCh {
		done++
		if r.Err != nil {
			log.Errorf("shard_crash", "%s: %v", r.ShardIn, r.Err)
			failures = append(failures, r)
			continue
		}
		total.Merge(r.Counts)
		log.Infof("shard_done", "%s (%d/%d shards): total=%d passed=%d",
			r.ShardIn, done, len(inputShards), r.Counts.Get("total"), r.Counts.Get("passed"))
	}

	return total, failures
}

func processOne(ctx context.Context, shardIn, outDir string, chain predicate.Chain) Result {
	out := filepath.Join(outDir, filepath.Base(shardIn))
	counts, err := runShard(ctx, shardIn, out, chain)
	return Result{ShardIn: shardIn, Err: err, Counts: counts}
}

// runShard recovers a panicking worker into a WorkerCrash-shaped error, so
// one bad shard never brings down the pool (component contract: "on any
// worker exception, the orchestrator logs and continues").
func runShard(ctx context.Context, in, out string, chain predicate.Chain) (counts *shardworker.Counters, err error) {
	defer func() {
		if r := recover(); r != nil {
			counts = shardworker.NewCounters()
			err = &crashError{shard: in, cause: r}
		}
	}()
	return shardworker.Process(ctx, in, out, chain)
}

type crashError struct {
	shard string
	cause any
}

func (e *crashError) Error() string {
	return filepath.Base(e.shard) + ": worker panic: " + formatCause(e.cause)
}

func formatCause(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "panic"
}

// defaultWorkers picks min(NumCPU, ceil(n/2)) per the component contract,
// so small batches don't over-subscribe the machine.
func defaultWorkers(n int) int {
	if n <= 0 {
		return 1
	}
	ceilHalf := (n + 1) / 2
	cpus := runtime.NumCPU()
	if ceilHalf < cpus {
		return ceilHalf
	}
	return cpus
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"webcorpus/internal/config"
	"webcorpus/internal/dedup"
	"webcorpus/internal/logger"
)

func newDedupCmd(cfg *config.Config) *cobra.Command {
	var (
		inDir, outDir string
		workers       int
		tableSize     int64
		cap           int
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Two-phase exact-line deduplication over a shared saturating counter table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inDir == "" || outDir == "" {
				return fmt.Errorf("%w: --in and --out are required", errUsage)
			}
			return runDedup(cfg, inDir, outDir, workers, tableSize, cap)
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "", "input shard directory (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "output shard directory (required)")
	cmd.Flags().IntVar(&workers, "workers", cfg.DedupWorkers, "worker cap (0 = NumCPU)")
	cmd.Flags().Int64Var(&tableSize, "table-size", cfg.TableSize, "N, number of saturating counter slots")
	cmd.Flags().IntVar(&cap, "cap", cfg.SaturationCap, "C, saturation cap (must be >= 2)")

	return cmd
}

func runDedup(cfg *config.Config, inDir, outDir string, workers int, tableSize int64, cap int) error {
	shards, err := listShards(inDir, 0)
	if err != nil {
		return err
	}
	if err := ensureOutDir(outDir); err != nil {
		return err
	}

	log := logger.New("DEDUP", cfg.LogLevel)

	table, err := allocTable(tableSize, cap)
	if err != nil {
		return err
	}
	log.Infof("alloc", "counter table: %d slots (%s), cap=%d", tableSize, humanize.IBytes(uint64(tableSize)), cap)

	log.Info("phase_a", "counting lines across all shards")
	failuresA := dedup.PhaseA(log, shards, table, workers)

	log.Info("phase_b", "re-reading shards, retaining unique lines")
	total, failuresB := dedup.PhaseB(log, shards, outDir, table, workers)
	reportCounters("dedup", total)

	failed := len(failuresA) + len(failuresB)
	if failed > 0 {
		return fmt.Errorf("dedup: %d shard failures across both phases", failed)
	}
	return nil
}

// allocTable validates the flag inputs and allocates the shared counter
// table, converting an allocation panic (out-of-memory for an
// unreasonably large --table-size) into the component contract's
// ResourceExhausted error kind (§7) rather than crashing the process.
func allocTable(n int64, cap int) (table *dedup.Table, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: --table-size must be positive, got %d", errUsage, n)
	}
	if cap < 2 {
		return nil, fmt.Errorf("%w: --cap must be >= 2, got %d", errUsage, cap)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: allocate %d-slot counter table: %v", errResourceExhausted, n, r)
		}
	}()
	return dedup.NewTable(uint64(n), uint8(cap)), nil
}

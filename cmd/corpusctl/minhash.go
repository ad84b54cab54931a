package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"webcorpus/internal/config"
	"webcorpus/internal/logger"
	"webcorpus/internal/metrics"
	"webcorpus/internal/minhash"
)

func newMinhashCmd(cfg *config.Config) *cobra.Command {
	var (
		inDir, outDir    string
		numHashes        int
		numBands         int
		ngramSize        int
		jaccardThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "minhash",
		Short: "Near-duplicate removal via banded MinHash LSH and exact-Jaccard verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inDir == "" || outDir == "" {
				return fmt.Errorf("%w: --in and --out are required", errUsage)
			}
			return runMinhash(cfg, inDir, outDir, minhash.Config{
				NumHashes:        numHashes,
				NumBands:         numBands,
				NgramSize:        ngramSize,
				JaccardThreshold: jaccardThreshold,
			})
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "", "input shard directory (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for representative shards (required)")
	cmd.Flags().IntVar(&numHashes, "num-hashes", cfg.NumHashes, "H, MinHash signature length")
	cmd.Flags().IntVar(&numBands, "num-bands", cfg.NumBands, "B, number of LSH bands (H must be divisible by B)")
	cmd.Flags().IntVar(&ngramSize, "ngram-size", cfg.NgramSize, "k, shingle size")
	cmd.Flags().Float64Var(&jaccardThreshold, "jaccard-threshold", cfg.JaccardThreshold, "minimum exact-Jaccard similarity to unify a candidate pair")

	return cmd
}

func runMinhash(cfg *config.Config, inDir, outDir string, mcfg minhash.Config) error {
	shards, err := listShards(inDir, 0)
	if err != nil {
		return err
	}
	if err := ensureOutDir(outDir); err != nil {
		return err
	}

	log := logger.New("MINHASH", cfg.LogLevel)
	m := metrics.New()

	log.Infof("start", "signature+banding over %d shards (H=%d, B=%d, k=%d, threshold=%.2f)",
		len(shards), mcfg.NumHashes, mcfg.NumBands, mcfg.NgramSize, mcfg.JaccardThreshold)

	if err := minhash.Run(log, m, shards, outDir, mcfg); err != nil {
		return fmt.Errorf("minhash: %w", err)
	}

	log.Infof("done", "candidate_pairs=%d pairs_verified=%d pairs_unified=%d",
		m.CandidatePairs.Load(), m.PairsVerified.Load(), m.PairsUnified.Load())
	return nil
}

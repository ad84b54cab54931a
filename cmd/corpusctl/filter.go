package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"webcorpus/internal/config"
	"webcorpus/internal/filterpipe"
	"webcorpus/internal/logger"
	"webcorpus/internal/predicate"
	"webcorpus/internal/predictor"
)

func newFilterCmd(cfg *config.Config) *cobra.Command {
	var (
		inDir, outDir string
		workers       int
		maxShards     int
		targetLang    string
		minLangConf   float64
		minWords      int
		chainSteps    string
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Run a predicate chain (language, quality, PII, classifiers) over input shards",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inDir == "" || outDir == "" {
				return fmt.Errorf("%w: --in and --out are required", errUsage)
			}
			steps, err := parseChainSteps(chainSteps)
			if err != nil {
				return err
			}
			return runFilter(cmd.Context(), cfg, filterOpts{
				inDir: inDir, outDir: outDir, workers: workers, maxShards: maxShards,
				targetLang: targetLang, minLangConf: minLangConf, minWords: minWords,
				steps: steps,
			})
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "", "input shard directory (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "output shard directory (required)")
	cmd.Flags().IntVar(&workers, "workers", cfg.FilterWorkers, "worker cap (0 = min(NumCPU, ceil(shards/2)))")
	cmd.Flags().IntVar(&maxShards, "max-shards", cfg.MaxShards, "cap on shards processed (0 = unlimited)")
	cmd.Flags().StringVar(&targetLang, "lang", "en", "required language tag (empty string accepts any)")
	cmd.Flags().Float64Var(&minLangConf, "min-lang-confidence", 0.8, "minimum language-detector confidence")
	cmd.Flags().IntVar(&minWords, "min-words", 50, "Gopher quality filter minimum token count")
	cmd.Flags().StringVar(&chainSteps, "chain", "lang,quality,pii", "comma-separated predicate chain: lang,quality,pii,nsfw,toxic")

	return cmd
}

type filterOpts struct {
	inDir, outDir string
	workers       int
	maxShards     int
	targetLang    string
	minLangConf   float64
	minWords      int
	steps         map[string]bool
}

// parseChainSteps validates --chain against the component contract's known
// step names (§4.4), rejecting anything else as a usage error rather than
// silently ignoring a typo'd step.
func parseChainSteps(csv string) (map[string]bool, error) {
	known := map[string]bool{"lang": true, "quality": true, "pii": true, "nsfw": true, "toxic": true}
	steps := make(map[string]bool)
	for _, raw := range strings.Split(csv, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown chain step %q (want one of lang,quality,pii,nsfw,toxic)", errUsage, name)
		}
		steps[name] = true
	}
	return steps, nil
}

func runFilter(ctx context.Context, cfg *config.Config, o filterOpts) error {
	shards, err := listShards(o.inDir, o.maxShards)
	if err != nil {
		return err
	}
	if err := ensureOutDir(o.outDir); err != nil {
		return err
	}

	log := logger.New("FILTER", cfg.LogLevel)

	// Build and immediately discard one chain up front so a predictor that
	// cannot be loaded fails the run once, right away, instead of as N
	// identical per-shard worker failures once the pool starts. (A bad
	// --chain value is already rejected as a usage error by
	// parseChainSteps; --lang is not validated.)
	probeChain, probeReg, err := buildChain(cfg, o)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	_ = probeChain
	probeReg.Close() //nolint:errcheck // best-effort close of the probe registry

	log.Infof("start", "filtering %d shards into %s", len(shards), o.outDir)
	newChain := func() (predicate.Chain, *predictor.Registry, error) {
		return buildChain(cfg, o)
	}
	total, failures := filterpipe.Run(ctx, log, shards, o.outDir, newChain, o.workers)
	reportCounters("filter", total)

	if len(failures) > 0 {
		return fmt.Errorf("filter: %d of %d shards failed", len(failures), len(shards))
	}
	return nil
}

// buildChain assembles the predicate chain named in --chain, in the
// component contract's fixed order (§4.4): language → quality →
// (optional pii/nsfw/toxic) → accept, backed by a freshly constructed
// Registry. buildChain is called once per worker goroutine (via the
// ChainFactory passed to filterpipe.Run), never shared across goroutines —
// each worker's models are loaded into its own process-local Registry,
// matching the component contract's "never shared across workers" rule.
func buildChain(cfg *config.Config, o filterOpts) (predicate.Chain, *predictor.Registry, error) {
	reg := predictor.New(cfg.ModelDir)

	var chain predicate.Chain

	if o.steps["lang"] {
		langPredictor, err := reg.Get("lang")
		if err != nil {
			return nil, reg, fmt.Errorf("load lang predictor: %w", err)
		}
		chain = append(chain, predicate.LanguageStep("language", langPredictor, o.targetLang, o.minLangConf))
	}
	if o.steps["quality"] {
		chain = append(chain, predicate.QualityStep("quality", o.minWords))
	}
	if o.steps["pii"] {
		chain = append(chain, predicate.PIIMaskStep("pii_mask"))
	}
	if o.steps["nsfw"] {
		nsfw, err := reg.Get("nsfw")
		if err != nil {
			return nil, reg, fmt.Errorf("load nsfw predictor: %w", err)
		}
		chain = append(chain, predicate.ClassifierStep("nsfw", nsfw, "nsfw", cfg.NSFWThreshold))
	}
	if o.steps["toxic"] {
		toxic, err := reg.Get("toxic")
		if err != nil {
			return nil, reg, fmt.Errorf("load toxic predictor: %w", err)
		}
		chain = append(chain, predicate.ClassifierStep("toxic", toxic, "toxic", cfg.ToxicThreshold))
	}

	return chain, reg, nil
}

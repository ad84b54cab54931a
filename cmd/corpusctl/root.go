package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"webcorpus/internal/config"
	"webcorpus/internal/shardworker"
)

// errUsage and errResourceExhausted are sentinels subcommands wrap their
// errors around so main can map them to the component contract's exit
// codes (§6: 0 success, 1 worker failure, 2 resource exhaustion, 3 usage
// error) without every subcommand hand-rolling os.Exit calls.
var (
	errUsage             = errors.New("usage error")
	errResourceExhausted = errors.New("resource exhausted")
)

type errClass int

const (
	classWorkerFailure errClass = iota
	classUsage
	classResourceExhausted
)

func classify(err error) errClass {
	switch {
	case errors.Is(err, errUsage):
		return classUsage
	case errors.Is(err, errResourceExhausted):
		return classResourceExhausted
	default:
		return classWorkerFailure
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var logLevel, configPath string

	root := &cobra.Command{
		Use:           "corpusctl",
		Short:         "Filter, deduplicate, and tokenize web-crawl text corpora",
		SilenceUsage:  true,
		SilenceErrors: true,
		// PersistentPreRunE applies --config/--log-level before any
		// subcommand's RunE runs, so every stage sees the same overridden
		// cfg regardless of which subcommand the user invoked.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.ApplyFile(cfg, configPath)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a corpus-config.json file, applied on top of defaults and env vars")

	root.AddCommand(newFilterCmd(cfg))
	root.AddCommand(newDedupCmd(cfg))
	root.AddCommand(newMinhashCmd(cfg))
	root.AddCommand(newTokenizeCmd(cfg))
	root.AddCommand(newFetchCmd(cfg))

	return root
}

// listShards returns the regular files directly under dir, sorted for
// deterministic iteration order, capped at maxShards (0 = unlimited).
func listShards(dir string, maxShards int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read input directory %s: %v", errUsage, dir, err)
	}

	var shards []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		shards = append(shards, filepath.Join(dir, e.Name()))
	}
	sort.Strings(shards)

	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: no shard files found in %s", errUsage, dir)
	}
	if maxShards > 0 && len(shards) > maxShards {
		shards = shards[:maxShards]
	}
	return shards, nil
}

// reportCounters prints one line per tag in insertion order, matching the
// component contract's "user-visible output is a tag→count table" (§7).
func reportCounters(stage string, c *shardworker.Counters) {
	fmt.Printf("\n%s results:\n", stage)
	for _, tag := range c.Tags() {
		fmt.Printf("  %-16s %d\n", tag, c.Get(tag))
	}
}

func ensureOutDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create output directory %s: %v", errResourceExhausted, dir, err)
	}
	return nil
}

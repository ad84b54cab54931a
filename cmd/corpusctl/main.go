// Command corpusctl drives the web-corpus pipeline: filtering raw shards
// through the predicate chain, exact-line deduplication, MinHash
// near-duplicate removal, tokenization, and bounded-concurrency URL
// fetching.
//
// Each stage is its own subcommand, run independently against a directory
// of shard files:
//
//	corpusctl filter   --in raw/      --out filtered/
//	corpusctl dedup    --in filtered/ --out deduped/
//	corpusctl minhash  --in deduped/  --out unique/
//	corpusctl tokenize --in unique/   --out tokens.bin
//	corpusctl fetch    --urls urls.txt --out fetched.shard
//
// Settings layer the usual way: built-in defaults, then corpus-config.json
// if present, then environment variables, which win (see internal/config).
// Exit codes: 0 success, 1 one or more shards failed, 2 resource
// exhaustion (e.g. the dedup counter table couldn't be allocated), 3 usage
// error (bad flags, missing input).
package main

import (
	"fmt"
	"os"

	"webcorpus/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	printBanner(cfg)

	root := newRootCmd(cfg)
	err := root.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, err)
	switch classify(err) {
	case classUsage:
		return 3
	case classResourceExhausted:
		return 2
	default:
		return 1
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf(`
╔══════════════════════════════════════════════════════╗
║              webcorpus — corpusctl  (Go)              ║
╚══════════════════════════════════════════════════════╝
  Log level       : %s
  Model directory : %s
`, cfg.LogLevel, cfg.ModelDir)
}

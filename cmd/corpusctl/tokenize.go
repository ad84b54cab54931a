package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"webcorpus/internal/config"
	"webcorpus/internal/logger"
	"webcorpus/internal/record"
	"webcorpus/internal/tokenizer"
)

func newTokenizeCmd(cfg *config.Config) *cobra.Command {
	var (
		inDir        string
		outPath      string
		maxShards    int
		encodingName string
		eosID        int
		parallel     bool
	)

	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Stream filtered records through a BPE tokenizer into a contiguous uint16 token file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inDir == "" || outPath == "" {
				return fmt.Errorf("%w: --in and --out are required", errUsage)
			}
			return runTokenize(cfg, inDir, outPath, maxShards, encodingName, eosID, parallel)
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "", "input shard directory (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output token file path (required)")
	cmd.Flags().IntVar(&maxShards, "max-shards", 0, "cap on shards read (0 = unlimited)")
	cmd.Flags().StringVar(&encodingName, "encoding", "r50k_base", "tiktoken BPE encoding name (its token ids must fit in uint16)")
	cmd.Flags().IntVar(&eosID, "eos-id", 50256, "end-of-sequence token id appended after every document")
	cmd.Flags().BoolVar(&parallel, "parallel", cfg.TokenizeParallel, "read shards across a bounded goroutine pool instead of one at a time")

	return cmd
}

func runTokenize(cfg *config.Config, inDir, outPath string, maxShards int, encodingName string, eosID int, parallel bool) error {
	shards, err := listShards(inDir, maxShards)
	if err != nil {
		return err
	}

	log := logger.New("TOKENIZE", cfg.LogLevel)

	docs, err := collectDocuments(shards, parallel)
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}

	if eosID < 0 || eosID > 0xFFFF {
		return fmt.Errorf("%w: --eos-id must fit in uint16, got %d", errUsage, eosID)
	}
	enc, err := tokenizer.NewTiktokenEncoder(encodingName, uint16(eosID))
	if err != nil {
		return fmt.Errorf("%w: load encoding %q: %v", errUsage, encodingName, err)
	}

	log.Infof("start", "tokenizing %d documents from %d shards", len(docs), len(shards))
	tokenCount, err := tokenizer.Run(enc, docs, outPath)
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}

	log.Infof("done", "%s tokens written to %s (%s)",
		humanize.Comma(tokenCount), outPath, humanize.IBytes(uint64(tokenCount*2)))
	return nil
}

// collectDocuments reads every conversion record's content out of shards
// into the flat document list the tokenizer sink's sampling/estimation
// step expects. Sequential mode preserves shard order exactly; parallel
// mode reads shards across a bounded goroutine pool and appends each
// shard's documents in shard order once every read completes, so the
// resulting slice is identical either way — --parallel only changes how
// fast reading finishes, never the token stream produced from it.
func collectDocuments(shards []string, parallel bool) ([]string, error) {
	if !parallel || len(shards) < 2 {
		return collectSequential(shards)
	}
	return collectParallel(shards)
}

func collectSequential(shards []string) ([]string, error) {
	var docs []string
	for _, path := range shards {
		if err := appendShardDocs(path, &docs); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func collectParallel(shards []string) ([]string, error) {
	perShard := make([][]string, len(shards))
	errs := make([]error, len(shards))

	workers := runtime.NumCPU()
	if workers > len(shards) {
		workers = len(shards)
	}

	jobCh := make(chan int, len(shards))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				errs[i] = appendShardDocs(shards[i], &perShard[i])
			}
		}()
	}
	for i := range shards {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var docs []string
	for _, d := range perShard {
		docs = append(docs, d...)
	}
	return docs, nil
}

func appendShardDocs(path string, docs *[]string) error {
	r, err := record.OpenShard(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		*docs = append(*docs, rec.Content)
	}
}

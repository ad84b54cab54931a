package minhash

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"webcorpus/internal/logger"
	"webcorpus/internal/metrics"
	"webcorpus/internal/record"
)

// Config bundles the tunables named in the component contract: H hashes, B
// bands (H must be divisible by B), k-shingle size, and the Jaccard
// acceptance threshold.
type Config struct {
	NumHashes        int
	NumBands         int
	NgramSize        int
	JaccardThreshold float64
}

// document is one shard treated as a single unit for near-dup detection —
// the source's Document wraps one input file; here a "document" is one
// shard's concatenated record text, and the representative shard's file is
// what gets copied to the output directory.
type document struct {
	path     string
	shingles map[string]struct{}
	sig      []uint32
}

// Run computes a MinHash signature per shard, buckets shards by band, unions
// any candidate pair whose exact Jaccard similarity meets cfg.JaccardThreshold,
// and copies one representative shard per equivalence class (the
// first-inserted member, stable under input order) into outDir.
func Run(log *logger.Logger, m *metrics.Metrics, shards []string, outDir string, cfg Config) error {
	if cfg.NumBands <= 0 || cfg.NumHashes%cfg.NumBands != 0 {
		return fmt.Errorf("minhash: numHashes (%d) must be a positive multiple of numBands (%d)", cfg.NumHashes, cfg.NumBands)
	}
	rowsPerBand := cfg.NumHashes / cfg.NumBands

	docs, err := computeSignatures(shards, cfg)
	if err != nil {
		return err
	}

	uf := NewUnionFind(len(docs))

	// One pass per band: bucket by band signature, then union every
	// candidate pair in the same bucket whose exact Jaccard clears the
	// threshold. Collapses the source's separate union/emit passes into
	// one sweep (DESIGN.md Open Question 3): union-find is idempotent, so
	// there is no correctness difference, only less iteration.
	for band := 0; band < cfg.NumBands; band++ {
		start := band * rowsPerBand
		end := start + rowsPerBand
		buckets := make(map[string][]DocID)
		for i, d := range docs {
			key := bandKey(d.sig[start:end])
			buckets[key] = append(buckets[key], DocID(i))
		}
		for _, members := range buckets {
			if len(members) < 2 {
				continue
			}
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					m.CandidatePairs.Add(1)
					a, b := members[i], members[j]
					if uf.SameSet(a, b) {
						continue
					}
					sim := JaccardSimilarity(docs[a].shingles, docs[b].shingles)
					m.PairsVerified.Add(1)
					if sim >= cfg.JaccardThreshold {
						uf.Union(a, b)
						m.PairsUnified.Add(1)
					}
				}
			}
		}
	}

	return selectRepresentatives(log, docs, uf, outDir)
}

// bandKey renders a band's signature slice as a stable map key.
func bandKey(rows []uint32) string {
	var b strings.Builder
	for _, v := range rows {
		fmt.Fprintf(&b, "%08x:", v)
	}
	return b.String()
}

// computeSignatures reads each shard's full text, preprocesses it, and
// computes its shingle set and MinHash signature. Signature computation is
// independent per shard, so it is fanned out over a bounded goroutine
// pool and merged back in input order — determinism depends only on
// inputs and cfg, not on completion order (component contract §4.7).
func computeSignatures(shards []string, cfg Config) ([]document, error) {
	docs := make([]document, len(shards))
	errs := make([]error, len(shards))

	workers := runtime.NumCPU()
	if workers > len(shards) {
		workers = len(shards)
	}
	if workers < 1 {
		workers = 1
	}

	jobCh := make(chan int, len(shards))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				text, err := readShardText(shards[i])
				if err != nil {
					errs[i] = err
					continue
				}
				preprocessed := Preprocess(text)
				shingles := Shingles(preprocessed, cfg.NgramSize)
				docs[i] = document{
					path:     shards[i],
					shingles: shingles,
					sig:      Signature(shingles, cfg.NumHashes),
				}
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
	return docs, nil
}

// readShardText concatenates every conversion record's content in a shard,
// separated by newlines, giving one text blob to preprocess and shingle.
func readShardText(path string) (string, error) {
	r, err := record.OpenShard(path)
	if err != nil {
		return "", fmt.Errorf("minhash: open %s: %w", path, err)
	}
	defer r.Close()

	var b strings.Builder
	for {
		rec, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("minhash: read %s: %w", path, err)
		}
		b.WriteString(rec.Content)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// selectRepresentatives copies one shard per equivalence class — the
// class member that comes first in input order, whichever member union-find
// left as the root — into outDir, matching the component contract's stable
// tie-break rule.
func selectRepresentatives(log *logger.Logger, docs []document, uf *UnionFind, outDir string) error {
	written := make(map[DocID]bool)
	kept, dropped := 0, 0
	for i := range docs {
		root := uf.Find(DocID(i))
		if written[root] {
			dropped++
			continue
		}
		written[root] = true
		kept++

		src := docs[i].path
		dst := filepath.Join(outDir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("minhash: copy representative %s: %w", src, err)
		}
	}
	log.Infof("representatives", "%d classes kept, %d near-duplicate shards dropped", kept, dropped)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path supplied by the CLI's own shard listing
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // path supplied by the CLI's own output directory
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Package tokenizer implements the token stream sink (C8): it streams text
// blobs through an external Encoder and appends token ids to a contiguous,
// memory-mapped file of little-endian uint16 values.
//
// The mmap lifecycle — map a pre-sized region, write into it directly,
// flush, unmap, then trim the file to its true length — follows
// go-mizu-mizu's localbase mmap_unix.go MapRegion/Unmap idiom, adapted
// from a read path to a write path.
package tokenizer

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Encoder is the external tokenizer collaborator named in the component
// contract: text -> token ids plus a fixed end-of-sequence id. Encode
// returns uint32 ids so Run can report ids above the uint16 range as
// ErrTokenOverflow. Any implementation is acceptable provided it is
// deterministic.
type Encoder interface {
	Encode(text string) ([]uint32, error)
	EOS() uint16
}

// ErrTokenOverflow is returned when an encoded token id exceeds the 16-bit
// range the output format can hold.
type ErrTokenOverflow struct {
	TokenID uint32
}

func (e *ErrTokenOverflow) Error() string {
	return fmt.Sprintf("tokenizer: token id %d exceeds uint16 range", e.TokenID)
}

const (
	sampleSize   = 100
	sizeEstimate = 1.2
)

// Run streams docs through enc, appending each document's tokens plus an
// EOS marker to a memory-mapped output file at path. It returns the true
// token count written. The output file is pre-sized by sampling up to 100
// documents, scaling by 1.2x and by the ratio of total to sampled inputs,
// then truncated to exactly 2*tokenCount bytes once the true count is
// known.
func Run(enc Encoder, docs []string, path string) (int64, error) {
	estimate, err := estimateTokenCount(enc, docs)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // path supplied by the CLI's own output flag
	if err != nil {
		return 0, fmt.Errorf("tokenizer: create %s: %w", path, err)
	}
	defer f.Close()

	sizeBytes := int64(estimate) * 2
	if sizeBytes < 2 {
		sizeBytes = 2
	}
	if err := f.Truncate(sizeBytes); err != nil {
		return 0, fmt.Errorf("tokenizer: preallocate %s: %w", path, err)
	}

	m, err := mmap.MapRegion(f, int(sizeBytes), mmap.RDWR, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("tokenizer: mmap %s: %w", path, err)
	}

	var tokenCount int64
	for _, text := range docs {
		ids, err := enc.Encode(text)
		if err != nil {
			m.Unmap() //nolint:errcheck // best-effort cleanup before returning the real error
			return 0, fmt.Errorf("tokenizer: encode: %w", err)
		}
		ids = append(ids, uint32(enc.EOS()))
		for _, id := range ids {
			if id > 0xFFFF {
				m.Unmap() //nolint:errcheck
				return 0, &ErrTokenOverflow{TokenID: id}
			}
			needed := (tokenCount + 1) * 2
			if needed > int64(len(m)) {
				m.Unmap() //nolint:errcheck
				return 0, fmt.Errorf("tokenizer: estimated size %d bytes exceeded after %d tokens", sizeBytes, tokenCount)
			}
			binary.LittleEndian.PutUint16(m[tokenCount*2:], uint16(id))
			tokenCount++
		}
	}

	if err := m.Flush(); err != nil {
		m.Unmap() //nolint:errcheck
		return 0, fmt.Errorf("tokenizer: flush %s: %w", path, err)
	}
	if err := m.Unmap(); err != nil {
		return 0, fmt.Errorf("tokenizer: unmap %s: %w", path, err)
	}

	if err := f.Truncate(tokenCount * 2); err != nil {
		return 0, fmt.Errorf("tokenizer: truncate %s to true length: %w", path, err)
	}
	return tokenCount, nil
}

// estimateTokenCount samples up to 100 documents, tokenizes them, and
// scales the observed average by 1.2x and by the ratio of total to sampled
// documents — the upper-bound heuristic from the component contract.
func estimateTokenCount(enc Encoder, docs []string) (float64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	n := len(docs)
	sampleN := n
	if sampleN > sampleSize {
		sampleN = sampleSize
	}

	var sampledTokens int
	for i := 0; i < sampleN; i++ {
		ids, err := enc.Encode(docs[i])
		if err != nil {
			return 0, fmt.Errorf("tokenizer: sample encode: %w", err)
		}
		sampledTokens += len(ids) + 1 // +1 for EOS
	}

	ratio := float64(n) / float64(sampleN)
	return float64(sampledTokens) * sizeEstimate * ratio, nil
}

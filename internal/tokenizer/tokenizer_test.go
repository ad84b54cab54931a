package tokenizer

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// wordEncoder is a deterministic stand-in Encoder: one token id per
// whitespace-separated word, looked up in a fixed vocabulary built from
// all words ever seen. EOS is a fixed sentinel outside the vocabulary
// range.
type wordEncoder struct {
	vocab map[string]uint32
	next  uint32
}

func newWordEncoder() *wordEncoder {
	return &wordEncoder{vocab: make(map[string]uint32)}
}

func (w *wordEncoder) Encode(text string) ([]uint32, error) {
	var ids []uint32
	for _, word := range strings.Fields(text) {
		id, ok := w.vocab[word]
		if !ok {
			id = w.next
			w.vocab[word] = id
			w.next++
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *wordEncoder) EOS() uint16 { return 0xFFFF }

// TestRun_S6_FileSizeMatchesTokenPlusEOSCount mirrors spec scenario S6:
// three short documents totalling 17 tokens produce a file of exactly
// (17 + 3) * 2 = 40 bytes, content equal to the concatenation of each
// document's tokens with EOS appended.
func TestRun_S6_FileSizeMatchesTokenPlusEOSCount(t *testing.T) {
	enc := newWordEncoder()
	docs := []string{
		"the quick brown fox jumps",    // 5 tokens
		"over the lazy dog today now",  // 6 tokens
		"six more words right here now", // 6 tokens
	}
	path := filepath.Join(t.TempDir(), "tokens.bin")

	count, err := Run(enc, docs, path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 17+3 {
		t.Errorf("token count = %d, want %d", count, 17+3)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != (17+3)*2 {
		t.Errorf("file size = %d, want %d", info.Size(), (17+3)*2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var want []uint16
	enc2 := newWordEncoder()
	for _, doc := range docs {
		ids, _ := enc2.Encode(doc)
		for _, id := range ids {
			want = append(want, uint16(id))
		}
		want = append(want, enc2.EOS())
	}
	if len(data) != len(want)*2 {
		t.Fatalf("decoded length mismatch")
	}
	for i, w := range want {
		got := binary.LittleEndian.Uint16(data[i*2:])
		if got != w {
			t.Errorf("token[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestRun_TokenOverflowIsAnError(t *testing.T) {
	enc := &overflowEncoder{}
	_, err := Run(enc, []string{"anything"}, filepath.Join(t.TempDir(), "tokens.bin"))
	if err == nil {
		t.Fatal("expected TokenOverflow error")
	}
	var overflow *ErrTokenOverflow
	if !errors.As(err, &overflow) {
		t.Errorf("expected *ErrTokenOverflow, got %T: %v", err, err)
	}
}

type overflowEncoder struct{}

func (overflowEncoder) Encode(string) ([]uint32, error) { return []uint32{70000}, nil }
func (overflowEncoder) EOS() uint16                     { return 0 }

func TestRun_EmptyDocsProducesEmptyFile(t *testing.T) {
	enc := newWordEncoder()
	path := filepath.Join(t.TempDir(), "tokens.bin")
	count, err := Run(enc, nil, path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}

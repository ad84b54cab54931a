// tiktoken.go wires the "external tokenizer" collaborator named in the
// component contract (SPEC_FULL.md Design Notes: "treat it as an external
// service") to a real binding, grounded on ArchGuard's getTokenizer/Encode
// call (other_examples/...ArchGuard__internal-analysis-engine.go.go), the
// only place in the pack that drives github.com/pkoukk/tiktoken-go.
package tokenizer

import "github.com/pkoukk/tiktoken-go"

// TiktokenEncoder adapts a *tiktoken.Tiktoken encoding to the Encoder
// interface Run expects.
type TiktokenEncoder struct {
	tkm   *tiktoken.Tiktoken
	eosID uint16
}

// NewTiktokenEncoder loads the named BPE encoding (e.g. "cl100k_base") and
// pairs it with eosID as the end-of-sequence marker appended after every
// document.
func NewTiktokenEncoder(encodingName string, eosID uint16) (*TiktokenEncoder, error) {
	tkm, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TiktokenEncoder{tkm: tkm, eosID: eosID}, nil
}

// Encode tokenizes text with no special-token handling — documents in this
// pipeline are plain extracted web text, never chat-formatted prompts.
func (e *TiktokenEncoder) Encode(text string) ([]uint32, error) {
	ids := e.tkm.Encode(text, nil, nil)
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out, nil
}

// EOS returns the configured end-of-sequence token id.
func (e *TiktokenEncoder) EOS() uint16 { return e.eosID }

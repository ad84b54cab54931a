// Package record implements a streaming iterator and sink over shards: flat
// files holding a sequence of self-delimited, gzip-framed archive records.
//
// The on-disk framing is a simplification of the WARC container format named
// in the component contract: each record is a length-prefixed gzip member
// wrapping a small header block followed by the UTF-8 payload. Only the
// fields the pipeline actually consumes are modeled — the WARC-Type and
// WARC-Target-URI equivalents, a record id, and for response records the
// status and header list — rather than the full WARC header grammar, which
// lives outside the core's scope.
package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"
)

// Type classifies a record the way WARC-Type does.
type Type string

// Record types the codec understands. Reader.Next yields only
// TypeConversion records and silently skips every other type.
const (
	TypeConversion Type = "conversion"
	TypeResponse   Type = "response"
	TypeRequest    Type = "request"
	TypeUnknown    Type = "unknown"
)

// Record is a single archive entry: a URL, a record id, and UTF-8 content.
// Records are immutable once built; callers must not mutate Content in place
// after handing a Record to a Sink.
type Record struct {
	Type    Type
	URL     string
	ID      string
	Content string

	// Status and Headers are populated on response-type records written by
	// the URL fetcher (C9); conversion records leave them empty.
	Status  int
	Headers [][2]string
}

// frameHeader is the small fixed-field header serialized ahead of each
// record's payload, inside the gzip member.
type frameHeader struct {
	Type    string      `json:"type"`
	URL     string      `json:"url"`
	ID      string      `json:"id"`
	Status  int         `json:"status,omitempty"`
	Headers [][2]string `json:"headers,omitempty"`
}

// Reader streams Records out of one shard file, skipping any record whose
// type is not requested via Next's implicit conversion-type filter.
type Reader struct {
	f       *os.File
	br      *bufio.Reader
	Skipped int64 // non-conversion records skipped so far, for diagnostics
}

// OpenShard opens path for streaming record reads.
func OpenShard(path string) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // path supplied by the CLI's own shard listing
	if err != nil {
		return nil, fmt.Errorf("open shard %q: %w", path, err)
	}
	return &Reader{f: f, br: bufio.NewReaderSize(f, 64*1024)}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Next returns the next conversion-type record in the shard. Non-conversion
// records are skipped silently and counted in r.Skipped. Returns io.EOF when
// the shard is exhausted.
func (r *Reader) Next() (Record, error) {
	for {
		rec, ok, err := r.readOneFrame()
		if err != nil {
			return Record{}, err
		}
		if !ok {
			return Record{}, io.EOF
		}
		if rec.Type != TypeConversion {
			r.Skipped++
			continue
		}
		return rec, nil
	}
}

// NextRaw returns the next record regardless of type, without the
// conversion-only filter Next applies. Intended for callers reading an
// archive that isn't itself pipeline input — e.g. the C9 fetcher's own
// response-type output — rather than the conversion-type shards Next
// expects to stream.
func (r *Reader) NextRaw() (Record, error) {
	rec, ok, err := r.readOneFrame()
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, io.EOF
	}
	return rec, nil
}

// readOneFrame reads a single length-prefixed gzip frame and decodes it into
// a Record of whatever type the frame header declares.
func (r *Reader) readOneFrame() (Record, bool, error) {
	var frameLen uint32
	if err := binary.Read(r.br, binary.LittleEndian, &frameLen); err != nil {
		if err == io.EOF {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("read frame length: %w", err)
	}

	limited := io.LimitReader(r.br, int64(frameLen))
	gz, err := gzip.NewReader(limited)
	if err != nil {
		return Record{}, false, fmt.Errorf("open gzip frame: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only frame, nothing to flush

	gzr := bufio.NewReader(gz)
	hdrLen, err := readUvarint(gzr)
	if err != nil {
		return Record{}, false, fmt.Errorf("read header length: %w", err)
	}
	hdrBytes := make([]byte, hdrLen)
	if _, err := io.ReadFull(gzr, hdrBytes); err != nil {
		return Record{}, false, fmt.Errorf("read header: %w", err)
	}
	hdr, err := decodeHeader(hdrBytes)
	if err != nil {
		return Record{}, false, fmt.Errorf("decode header: %w", err)
	}

	payload, err := io.ReadAll(gzr)
	if err != nil {
		return Record{}, false, fmt.Errorf("read payload: %w", err)
	}
	content := decodePayload(payload)

	return Record{
		Type:    Type(hdr.Type),
		URL:     hdr.URL,
		ID:      hdr.ID,
		Content: content,
		Status:  hdr.Status,
		Headers: hdr.Headers,
	}, true, nil
}

// DetectEncoding names the encoding decodePayload should use for b: "utf-8"
// if b is already valid UTF-8, otherwise "latin1" as the fallback
// heuristic. The source (original_source's extract_text.py) runs a
// charset-detection library ahead of its UTF-8-replacement fallback; no
// example repo in the pack carries an equivalent dependency (DESIGN.md), so
// this stands in with the smallest heuristic that still does something
// useful: a valid-UTF-8 payload is decoded as-is, anything else is assumed
// to be a single-byte Latin-1-family encoding, which is by far the most
// common non-UTF-8 encoding seen in crawled web text and — unlike UTF-8
// replacement — recovers the original characters losslessly when the guess
// is right.
func DetectEncoding(b []byte) string {
	if utf8.Valid(b) {
		return "utf-8"
	}
	return "latin1"
}

// decodePayload applies the component contract's decode-failure fallback:
// bytes that aren't valid UTF-8 are run through the detected alternate
// encoding first; only if that also fails does it fall back to UTF-8 with
// replacement-character substitution.
func decodePayload(b []byte) string {
	switch DetectEncoding(b) {
	case "utf-8":
		return string(b)
	case "latin1":
		if s, err := decodeLatin1(b); err == nil {
			return s
		}
	}
	return decodeWithReplacement(b)
}

// decodeLatin1 decodes b as ISO-8859-1 (Latin-1): every byte 0x00-0xFF maps
// to a valid Unicode code point, so this never actually errors, but the
// error return is kept so DetectEncoding's dispatch in decodePayload stays
// uniform if a future encoding guess can fail.
func decodeLatin1(b []byte) (string, error) {
	return charmap.ISO8859_1.NewDecoder().String(string(b))
}

// decodeWithReplacement walks the byte slice rune-by-rune, substituting
// utf8.RuneError for any invalid sequence — equivalent to Python's
// `bytes.decode("utf-8", errors="replace")` used as the extraction fallback.
func decodeWithReplacement(b []byte) string {
	var out []rune
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}

// Sink is a single-writer shard writer. Write serializes one record per
// call; Close flushes and closes the underlying file.
type Sink struct {
	f  *os.File
	bw *bufio.Writer
}

// NewSink creates (or truncates) a shard file for writing.
func NewSink(path string) (*Sink, error) {
	f, err := os.Create(path) //nolint:gosec // path supplied by the CLI's own output directory
	if err != nil {
		return nil, fmt.Errorf("create shard %q: %w", path, err)
	}
	return &Sink{f: f, bw: bufio.NewWriterSize(f, 64*1024)}, nil
}

// Write serializes rec as one length-prefixed gzip frame. Conversion records
// are written with WARC-Target-URI equal to rec.URL and the content encoded
// as UTF-8, matching the record codec contract.
func (s *Sink) Write(rec Record) error {
	hdr := frameHeader{
		Type:    string(rec.Type),
		URL:     rec.URL,
		ID:      rec.ID,
		Status:  rec.Status,
		Headers: rec.Headers,
	}
	hdrBytes, err := encodeHeader(hdr)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	var body []byte
	body = appendUvarint(body, uint64(len(hdrBytes)))
	body = append(body, hdrBytes...)
	body = append(body, rec.Content...)

	var frame []byte
	fw := newByteWriter(&frame)
	gz := gzip.NewWriter(fw)
	if _, err := gz.Write(body); err != nil {
		return fmt.Errorf("write gzip frame: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip frame: %w", err)
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := s.bw.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := s.bw.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close flushes buffered writes and closes the shard file.
func (s *Sink) Close() error {
	if err := s.bw.Flush(); err != nil {
		s.f.Close() //nolint:errcheck // best-effort close on flush failure
		return fmt.Errorf("flush shard: %w", err)
	}
	return s.f.Close()
}

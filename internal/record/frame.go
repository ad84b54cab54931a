package record

import (
	"encoding/binary"
	"encoding/json"
	"io"
)

// encodeHeader serializes a frameHeader as JSON. JSON (rather than a custom
// binary layout) keeps the header self-describing and trivially extensible,
// at the cost of a few extra bytes per record — irrelevant next to gzip's
// own framing overhead.
func encodeHeader(h frameHeader) ([]byte, error) {
	return json.Marshal(h)
}

func decodeHeader(b []byte) (frameHeader, error) {
	var h frameHeader
	err := json.Unmarshal(b, &h)
	return h, err
}

// appendUvarint appends the LEB128 varint encoding of v to dst.
func appendUvarint(dst []byte, v uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// readUvarint reads a LEB128 varint from r.
func readUvarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// newByteWriter returns an io.Writer that appends into *dst, for building a
// frame in memory before it is length-prefixed and flushed to the shard file.
func newByteWriter(dst *[]byte) io.Writer {
	return &byteWriter{dst: dst}
}

type byteWriter struct{ dst *[]byte }

func (w *byteWriter) Write(p []byte) (int, error) {
	*w.dst = append(*w.dst, p...)
	return len(p), nil
}

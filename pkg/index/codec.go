package index

import (
	"bytes"
	"encoding/binary"
	"io"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
	"github.com/cerplabs/ferrex/pkg/fielddict"
)

// encodeFieldDict serializes dict as a 4-byte BE entry count followed by
// its own (FID, name_len, name) tuple encoding (SPEC_FULL.md §4.1).
func encodeFieldDict(dict *fielddict.Dict) ([]byte, error) {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(dict.Len()))
	buf.Write(countBuf[:])
	if err := dict.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFieldDict(raw []byte) (*fielddict.Dict, error) {
	if len(raw) < 4 {
		return nil, ferrexerr.SerializationDecoding("fielddict", io.ErrUnexpectedEOF)
	}
	count := binary.BigEndian.Uint32(raw[0:4])
	return fielddict.Decode(bytes.NewReader(raw[4:]), int(count))
}

// encodeFieldDistribution serializes a field-name → count map as
// (count uint32 BE entries of (name_len uint16 BE, name, value uint64 BE)).
func encodeFieldDistribution(dist map[string]uint64) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(dist)))
	buf.Write(countBuf[:])
	for name, count := range dist {
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(len(name)))
		buf.Write(hdr[:])
		buf.WriteString(name)
		var cb [8]byte
		binary.BigEndian.PutUint64(cb[:], count)
		buf.Write(cb[:])
	}
	return buf.Bytes()
}

// encodeStringList serializes a list of names as a 4-byte BE count
// followed by (name_len uint16 BE, name) tuples.
func encodeStringList(names []string) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(names)))
	buf.Write(countBuf[:])
	for _, name := range names {
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(len(name)))
		buf.Write(hdr[:])
		buf.WriteString(name)
	}
	return buf.Bytes()
}

func decodeStringList(raw []byte) []string {
	if len(raw) < 4 {
		return nil
	}
	n := binary.BigEndian.Uint32(raw[0:4])
	out := make([]string, 0, n)
	pos := 4
	for i := uint32(0); i < n; i++ {
		if pos+2 > len(raw) {
			break
		}
		nameLen := int(binary.BigEndian.Uint16(raw[pos : pos+2]))
		pos += 2
		if pos+nameLen > len(raw) {
			break
		}
		out = append(out, string(raw[pos:pos+nameLen]))
		pos += nameLen
	}
	return out
}

func decodeFieldDistribution(raw []byte) (map[string]uint64, error) {
	if len(raw) < 4 {
		return nil, ferrexerr.SerializationDecoding("field_distribution", io.ErrUnexpectedEOF)
	}
	n := binary.BigEndian.Uint32(raw[0:4])
	out := make(map[string]uint64, n)
	pos := 4
	for i := uint32(0); i < n; i++ {
		if pos+2 > len(raw) {
			return nil, ferrexerr.SerializationDecoding("field_distribution", io.ErrUnexpectedEOF)
		}
		nameLen := int(binary.BigEndian.Uint16(raw[pos : pos+2]))
		pos += 2
		if pos+nameLen+8 > len(raw) {
			return nil, ferrexerr.SerializationDecoding("field_distribution", io.ErrUnexpectedEOF)
		}
		name := string(raw[pos : pos+nameLen])
		pos += nameLen
		count := binary.BigEndian.Uint64(raw[pos : pos+8])
		pos += 8
		out[name] = count
	}
	return out, nil
}

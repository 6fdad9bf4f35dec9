// Package batch implements the engine's intermediate document batch
// format: a self-describing, seekable binary container that decouples
// ingestion parsing from indexing (spec.md §4.2).
package batch

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"sort"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/fielddict"
)

// maxRecordSize is the largest encoded compact record accepted, per
// spec.md §3's "a document exceeding 2³¹−1 bytes is rejected".
const maxRecordSize = 1<<31 - 1

// fieldEntry is one decoded (FID, value) pair of a compact record.
type fieldEntry struct {
	fid   fielddict.FID
	value []byte
}

// encodeRecord produces the compact document record for obj: a sorted-by-
// FID sequence of (FID uint16 BE, length uint32 BE, value []byte) entries,
// per SPEC_FULL.md §3. Each key of obj is inserted into dict (idempotently),
// and its value JSON-encoded verbatim as value_bytes — nested values are
// not recursively flattened at this layer (spec.md §4.2).
func encodeRecord(dict *fielddict.Dict, obj docvalue.Value) ([]byte, error) {
	keys := obj.ObjectKeys()
	entries := make([]fieldEntry, 0, len(keys))
	for _, name := range keys {
		v := obj.AsObject()[name]
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, ferrexerr.SerializationEncoding("batch", err)
		}
		fid := dict.Insert(name)
		entries = append(entries, fieldEntry{fid: fid, value: raw})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].fid < entries[j].fid })

	var buf []byte
	for _, e := range entries {
		var hdr [6]byte
		binary.BigEndian.PutUint16(hdr[0:2], uint16(e.fid))
		binary.BigEndian.PutUint32(hdr[2:6], uint32(len(e.value)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, e.value...)
	}
	if len(buf) > maxRecordSize {
		return nil, ferrexerr.DocumentTooLarge("compact record exceeds maximum size")
	}
	return buf, nil
}

// decodeRecord parses a compact record back into its (FID, value) entries.
func decodeRecord(raw []byte) ([]fieldEntry, error) {
	var entries []fieldEntry
	pos := 0
	for pos < len(raw) {
		if pos+6 > len(raw) {
			return nil, ferrexerr.SerializationDecoding("batch", io.ErrUnexpectedEOF)
		}
		fid := fielddict.FID(binary.BigEndian.Uint16(raw[pos : pos+2]))
		length := binary.BigEndian.Uint32(raw[pos+2 : pos+6])
		pos += 6
		if pos+int(length) > len(raw) {
			return nil, ferrexerr.SerializationDecoding("batch", io.ErrUnexpectedEOF)
		}
		entries = append(entries, fieldEntry{fid: fid, value: raw[pos : pos+int(length)]})
		pos += int(length)
	}
	return entries, nil
}

// fieldByFID returns the value bytes for fid within entries, for random
// access "by FID within one record" (spec.md §3).
func fieldByFID(entries []fieldEntry, fid fielddict.FID) ([]byte, bool) {
	for _, e := range entries {
		if e.fid == fid {
			return e.value, true
		}
	}
	return nil, false
}

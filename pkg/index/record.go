package index

import (
	"encoding/binary"
	"io"
	"sort"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/fielddict"
)

// maxRecordSize mirrors spec.md §3's "a document exceeding 2³¹−1 bytes is
// rejected", the same bound pkg/batch enforces for batch-container records.
const maxRecordSize = 1<<31 - 1

// fieldEntry is one decoded (FID, value) pair of a compact document record
// stored under the documents bucket.
type fieldEntry struct {
	fid   fielddict.FID
	value []byte
}

// encodeRecord produces the compact document record for obj, inserting
// each field name into dict, per the standard ordered-key-value encoder
// convention (FID uint16 BE, length uint32 BE, value []byte), sorted by
// FID (SPEC_FULL.md §3).
func encodeRecord(dict *fielddict.Dict, obj docvalue.Value) ([]byte, error) {
	keys := obj.ObjectKeys()
	entries := make([]fieldEntry, 0, len(keys))
	for _, name := range keys {
		v := obj.AsObject()[name]
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, ferrexerr.SerializationEncoding("documents", err)
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

func decodeRecord(raw []byte) ([]fieldEntry, error) {
	var entries []fieldEntry
	pos := 0
	for pos < len(raw) {
		if pos+6 > len(raw) {
			return nil, ferrexerr.SerializationDecoding("documents", io.ErrUnexpectedEOF)
		}
		fid := fielddict.FID(binary.BigEndian.Uint16(raw[pos : pos+2]))
		length := binary.BigEndian.Uint32(raw[pos+2 : pos+6])
		pos += 6
		if pos+int(length) > len(raw) {
			return nil, ferrexerr.SerializationDecoding("documents", io.ErrUnexpectedEOF)
		}
		entries = append(entries, fieldEntry{fid: fid, value: raw[pos : pos+int(length)]})
		pos += int(length)
	}
	return entries, nil
}

func recordToValue(dict *fielddict.Dict, entries []fieldEntry) (docvalue.Value, error) {
	fields := make(map[string]docvalue.Value, len(entries))
	for _, e := range entries {
		name, ok := dict.LookupByFID(e.fid)
		if !ok {
			return docvalue.Value{}, ferrexerr.MissingEntry("fielddict", "fid")
		}
		var v docvalue.Value
		if err := v.UnmarshalJSON(e.value); err != nil {
			return docvalue.Value{}, ferrexerr.SerializationDecoding("documents", err)
		}
		fields[name] = v
	}
	return docvalue.Object(fields), nil
}

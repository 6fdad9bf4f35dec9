package batch

import (
	"encoding/binary"
	"io"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/fielddict"
)

// Record is a single decoded compact record, giving random access to its
// (FID, value) entries. It does not carry a field dictionary; pass the
// Reader's Fields() to resolve FIDs to names.
type Record struct {
	entries []fieldEntry
}

// Value returns the raw JSON value bytes stored under fid, if present.
func (r Record) Value(fid fielddict.FID) ([]byte, bool) {
	return fieldByFID(r.entries, fid)
}

// FIDs returns every FID present in this record, in ascending order.
func (r Record) FIDs() []fielddict.FID {
	out := make([]fielddict.FID, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.fid
	}
	return out
}

// AsValue decodes the full record into a docvalue.Value Object, keyed by
// field name via dict.
func (r Record) AsValue(dict *fielddict.Dict) (docvalue.Value, error) {
	fields := make(map[string]docvalue.Value, len(r.entries))
	for _, e := range r.entries {
		name, ok := dict.LookupByFID(e.fid)
		if !ok {
			return docvalue.Value{}, ferrexerr.MissingEntry("fielddict", "fid")
		}
		var v docvalue.Value
		if err := v.UnmarshalJSON(e.value); err != nil {
			return docvalue.Value{}, ferrexerr.SerializationDecoding("batch", err)
		}
		fields[name] = v
	}
	return docvalue.Object(fields), nil
}

// Reader consumes a batch container written by Writer: it reads the
// meta-offset, deserializes the trailing metadata, then exposes sequential
// access to records starting at offset 8.
type Reader struct {
	source io.ReadSeeker
	dict   *fielddict.Dict
	count  uint64
	read   uint64
}

// OpenReader reads the 8-byte meta-offset at offset 0, seeks to it,
// deserializes metadata, then seeks back to offset 8, positioned at the
// first record.
func OpenReader(source io.ReadSeeker) (*Reader, error) {
	if _, err := source.Seek(0, io.SeekStart); err != nil {
		return nil, ferrexerr.IOError("failed to seek to batch header", err)
	}
	var hdr [8]byte
	if _, err := io.ReadFull(source, hdr[:]); err != nil {
		return nil, ferrexerr.SerializationDecoding("batch", err)
	}
	metaOffset := int64(binary.BigEndian.Uint64(hdr[:]))

	if _, err := source.Seek(metaOffset, io.SeekStart); err != nil {
		return nil, ferrexerr.IOError("failed to seek to batch metadata", err)
	}
	var metaHdr [16]byte
	if _, err := io.ReadFull(source, metaHdr[:]); err != nil {
		return nil, ferrexerr.SerializationDecoding("batch", err)
	}
	count := binary.BigEndian.Uint64(metaHdr[0:8])
	fieldCount := binary.BigEndian.Uint64(metaHdr[8:16])

	dict, err := fielddict.Decode(source, int(fieldCount))
	if err != nil {
		return nil, err
	}

	if _, err := source.Seek(8, io.SeekStart); err != nil {
		return nil, ferrexerr.IOError("failed to seek to first record", err)
	}

	return &Reader{source: source, dict: dict, count: count}, nil
}

// Count returns the number of records in the batch.
func (r *Reader) Count() uint64 { return r.count }

// Fields returns the field dictionary the batch was written against.
func (r *Reader) Fields() *fielddict.Dict { return r.dict }

// Next returns the next record without copying field values, or (Record{},
// false, nil) exactly after Count() records. Reading past Count() does not
// read further bytes from the source.
func (r *Reader) Next() (Record, bool, error) {
	if r.read >= r.count {
		return Record{}, false, nil
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r.source, lenBuf[:]); err != nil {
		return Record{}, false, ferrexerr.SerializationDecoding("batch", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])

	raw := make([]byte, length)
	if _, err := io.ReadFull(r.source, raw); err != nil {
		return Record{}, false, ferrexerr.SerializationDecoding("batch", err)
	}

	entries, err := decodeRecord(raw)
	if err != nil {
		return Record{}, false, err
	}
	r.read++
	return Record{entries: entries}, true, nil
}

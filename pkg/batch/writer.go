package batch

import (
	"encoding/binary"
	"io"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/fielddict"
)

// Writer produces a seekable, self-describing batch of compact document
// records (spec.md §4.2). Open reserves the 8-byte meta-offset header;
// Finish patches it once the trailing metadata record has been written.
type Writer struct {
	sink  io.WriteSeeker
	dict  *fielddict.Dict
	count uint64
}

// Open reserves 8 bytes at offset 0 for the meta-offset and positions the
// cursor past them, ready to receive records.
func Open(sink io.WriteSeeker, initialFields *fielddict.Dict) (*Writer, error) {
	if initialFields == nil {
		initialFields = fielddict.New()
	}
	var placeholder [8]byte
	if _, err := sink.Write(placeholder[:]); err != nil {
		return nil, ferrexerr.IOError("failed to reserve batch header", err)
	}
	return &Writer{sink: sink, dict: initialFields}, nil
}

// Len returns the number of records appended so far.
func (w *Writer) Len() uint64 { return w.count }

// Add accepts a single document as an Object Value, or a sequence of such
// mappings as an Array of Objects (each element added in order). Any other
// shape fails with InvalidDocumentFormat; a sequence nested inside a
// sequence is rejected the same way.
func (w *Writer) Add(v docvalue.Value) error {
	switch v.Kind() {
	case docvalue.KindObject:
		return w.addOne(v)
	case docvalue.KindArray:
		for _, item := range v.AsArray() {
			if item.Kind() == docvalue.KindArray {
				return ferrexerr.InvalidDocumentFormat("nested sequence is not a valid document")
			}
			if item.Kind() != docvalue.KindObject {
				return ferrexerr.InvalidDocumentFormat("sequence element is not a mapping")
			}
			if err := w.addOne(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return ferrexerr.InvalidDocumentFormat("document is neither a mapping nor a sequence of mappings")
	}
}

func (w *Writer) addOne(obj docvalue.Value) error {
	record, err := encodeRecord(w.dict, obj)
	if err != nil {
		return err
	}
	return w.AddRaw(record)
}

// AddRaw appends an already-encoded compact record, prefixed with its
// 32-bit big-endian length. The caller guarantees the FIDs referenced by
// raw already exist in the current dictionary.
func (w *Writer) AddRaw(raw []byte) error {
	if len(raw) > maxRecordSize {
		return ferrexerr.DocumentTooLarge("compact record exceeds maximum size")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(raw)))
	if _, err := w.sink.Write(lenBuf[:]); err != nil {
		return ferrexerr.IOError("failed to write record length", err)
	}
	if _, err := w.sink.Write(raw); err != nil {
		return ferrexerr.IOError("failed to write record", err)
	}
	w.count++
	return nil
}

// Finish serializes the metadata record at the current end of sink, then
// seeks to offset 0 and writes the meta-offset as an 8-byte big-endian
// value. It consumes the Writer.
func (w *Writer) Finish() error {
	metaOffset, err := w.sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return ferrexerr.IOError("failed to determine meta offset", err)
	}

	if err := writeMetadata(w.sink, w.count, w.dict); err != nil {
		return err
	}

	if _, err := w.sink.Seek(0, io.SeekStart); err != nil {
		return ferrexerr.IOError("failed to seek to batch header", err)
	}
	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(metaOffset))
	if _, err := w.sink.Write(hdr[:]); err != nil {
		return ferrexerr.IOError("failed to patch meta offset", err)
	}
	return nil
}

// writeMetadata serializes { count: u64, fields: bijection } to w. The
// dictionary's entry count is written ahead of its entries so a Reader
// knows how many (FID, name) tuples to decode.
func writeMetadata(w io.Writer, count uint64, dict *fielddict.Dict) error {
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[0:8], count)
	binary.BigEndian.PutUint64(hdr[8:16], uint64(dict.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		return ferrexerr.IOError("failed to write batch metadata header", err)
	}
	if err := dict.Encode(w); err != nil {
		return err
	}
	return nil
}

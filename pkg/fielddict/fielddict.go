// Package fielddict implements the field dictionary: a bijection between
// short integer field identifiers (FIDs) and field name strings (spec.md
// §4.1).
package fielddict

import (
	"encoding/binary"
	"fmt"
	"io"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// FID is a field identifier, assigned per distinct field name.
type FID = uint16

// Dict is a FID↔name bijection. Insertion order is not preserved; iteration
// order is unspecified (spec.md §4.1).
type Dict struct {
	byName map[string]FID
	byFID  map[FID]string
	next   FID
}

// New returns an empty Dict.
func New() *Dict {
	return &Dict{
		byName: make(map[string]FID),
		byFID:  make(map[FID]string),
	}
}

// Insert returns the FID for name, assigning a new one if name is unseen.
// Idempotent: calling Insert twice with the same name returns the same FID.
func (d *Dict) Insert(name string) FID {
	if fid, ok := d.byName[name]; ok {
		return fid
	}
	fid := d.next
	d.next++
	d.byName[name] = fid
	d.byFID[fid] = name
	return fid
}

// LookupByName returns the FID assigned to name, if any.
func (d *Dict) LookupByName(name string) (FID, bool) {
	fid, ok := d.byName[name]
	return fid, ok
}

// LookupByFID returns the name assigned to fid, if any.
func (d *Dict) LookupByFID(fid FID) (string, bool) {
	name, ok := d.byFID[fid]
	return name, ok
}

// Len returns the number of distinct fields in the dictionary.
func (d *Dict) Len() int { return len(d.byFID) }

// Names returns all field names currently in the dictionary, in unspecified
// order.
func (d *Dict) Names() []string {
	names := make([]string, 0, len(d.byName))
	for n := range d.byName {
		names = append(names, n)
	}
	return names
}

// Encode serializes the dictionary as a sequence of
// (FID uint16 BE, name_len uint16 BE, name []byte) tuples.
func (d *Dict) Encode(w io.Writer) error {
	hdr := make([]byte, 4)
	for fid, name := range d.byFID {
		if len(name) > 0xFFFF {
			return ferrexerr.SerializationEncoding("fielddict", fmt.Errorf("field name too long: %d bytes", len(name)))
		}
		binary.BigEndian.PutUint16(hdr[0:2], fid)
		binary.BigEndian.PutUint16(hdr[2:4], uint16(len(name)))
		if _, err := w.Write(hdr); err != nil {
			return ferrexerr.IOError("failed to write field dictionary entry", err)
		}
		if _, err := io.WriteString(w, name); err != nil {
			return ferrexerr.IOError("failed to write field dictionary entry", err)
		}
	}
	return nil
}

// Decode deserializes n entries from r into a fresh Dict. Fails with
// DuplicateMapping-class SerializationDecoding error if bijectivity would
// be violated.
func Decode(r io.Reader, n int) (*Dict, error) {
	d := New()
	hdr := make([]byte, 4)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, hdr); err != nil {
			return nil, ferrexerr.SerializationDecoding("fielddict", err)
		}
		fid := binary.BigEndian.Uint16(hdr[0:2])
		nameLen := binary.BigEndian.Uint16(hdr[2:4])
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, ferrexerr.SerializationDecoding("fielddict", err)
		}
		name := string(nameBuf)

		if existing, ok := d.byName[name]; ok && existing != fid {
			return nil, ferrexerr.SerializationDecoding("fielddict",
				fmt.Errorf("duplicate mapping: name %q already bound to FID %d, cannot rebind to %d", name, existing, fid))
		}
		if existingName, ok := d.byFID[fid]; ok && existingName != name {
			return nil, ferrexerr.SerializationDecoding("fielddict",
				fmt.Errorf("duplicate mapping: FID %d already bound to %q, cannot rebind to %q", fid, existingName, name))
		}

		d.byName[name] = fid
		d.byFID[fid] = name
		if fid >= d.next {
			d.next = fid + 1
		}
	}
	return d, nil
}

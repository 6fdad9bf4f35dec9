// Package postings implements the engine's posting set: an ordered set of
// DocIDs supporting union, intersection, difference, and ascending
// iteration (spec.md §3), backed by a compressed integer bitmap.
package postings

import (
	"bytes"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// Set is an ordered set of DocIDs.
type Set struct {
	bm *roaring.Bitmap
}

// New returns an empty Set.
func New() *Set {
	return &Set{bm: roaring.New()}
}

// FromSlice returns a Set containing exactly the given DocIDs.
func FromSlice(docIDs []uint32) *Set {
	return &Set{bm: roaring.BitmapOf(docIDs...)}
}

// Add inserts docID into the set.
func (s *Set) Add(docID uint32) { s.bm.Add(docID) }

// Remove deletes docID from the set.
func (s *Set) Remove(docID uint32) { s.bm.Remove(docID) }

// Contains reports whether docID is a member.
func (s *Set) Contains(docID uint32) bool { return s.bm.Contains(docID) }

// Len returns the number of DocIDs in the set.
func (s *Set) Len() int { return int(s.bm.GetCardinality()) }

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool { return s.bm.IsEmpty() }

// ToSlice returns the DocIDs in ascending order.
func (s *Set) ToSlice() []uint32 { return s.bm.ToArray() }

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set { return &Set{bm: s.bm.Clone()} }

// Union returns a new Set containing the union of s and other.
func (s *Set) Union(other *Set) *Set {
	return &Set{bm: roaring.Or(s.bm, other.bm)}
}

// Intersect returns a new Set containing the intersection of s and other.
func (s *Set) Intersect(other *Set) *Set {
	return &Set{bm: roaring.And(s.bm, other.bm)}
}

// Difference returns a new Set containing members of s not in other
// (s \ other).
func (s *Set) Difference(other *Set) *Set {
	return &Set{bm: roaring.AndNot(s.bm, other.bm)}
}

// SubtractInPlace removes every member of other from s.
func (s *Set) SubtractInPlace(other *Set) {
	s.bm.AndNot(other.bm)
}

// Iterator returns an ascending iterator over s's members.
func (s *Set) Iterator() roaring.IntPeekable {
	return s.bm.Iterator()
}

// WriteTo serializes s using roaring's native container format.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	n, err := s.bm.WriteTo(w)
	if err != nil {
		return n, ferrexerr.SerializationEncoding("postings", err)
	}
	return n, nil
}

// ToBytes serializes s to a byte slice.
func (s *Set) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFrom deserializes s from roaring's native container format, replacing
// its current contents.
func (s *Set) ReadFrom(r io.Reader) (int64, error) {
	if s.bm == nil {
		s.bm = roaring.New()
	}
	n, err := s.bm.ReadFrom(r)
	if err != nil {
		return n, ferrexerr.SerializationDecoding("postings", err)
	}
	return n, nil
}

// FromBytes deserializes a Set from its roaring native container encoding.
func FromBytes(data []byte) (*Set, error) {
	s := New()
	if _, err := s.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return s, nil
}

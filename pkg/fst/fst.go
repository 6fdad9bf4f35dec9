// Package fst implements the engine's finite-state sets: compact
// membership-only sets over the sorted universe of words, prefixes, or
// external IDs (spec.md §3), backed by github.com/blevesearch/vellum.
package fst

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// Set is an immutable finite-state set of byte strings.
type Set struct {
	fst *vellum.FST
	raw []byte
}

// Build constructs a Set from terms. terms need not be pre-sorted; Build
// sorts and deduplicates them before constructing the FST, since vellum
// requires strictly increasing insertion order.
func Build(terms [][]byte) (*Set, error) {
	sorted := make([][]byte, len(terms))
	copy(sorted, terms)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, ferrexerr.SerializationEncoding("fst", err)
	}

	var last []byte
	for _, term := range sorted {
		if last != nil && bytes.Equal(last, term) {
			continue
		}
		if err := builder.Insert(term, 0); err != nil {
			return nil, ferrexerr.SerializationEncoding("fst", err)
		}
		last = term
	}
	if err := builder.Close(); err != nil {
		return nil, ferrexerr.SerializationEncoding("fst", err)
	}

	return Load(buf.Bytes())
}

// Load deserializes a Set from its vellum container encoding.
func Load(raw []byte) (*Set, error) {
	f, err := vellum.Load(raw)
	if err != nil {
		return nil, ferrexerr.SerializationDecoding("fst", err)
	}
	return &Set{fst: f, raw: raw}, nil
}

// Bytes returns the Set's serialized container encoding.
func (s *Set) Bytes() []byte { return s.raw }

// Contains reports whether term is a member of the set.
func (s *Set) Contains(term []byte) bool {
	_, exists, err := s.fst.Get(term)
	return err == nil && exists
}

// Len returns the number of terms in the set.
func (s *Set) Len() int { return int(s.fst.Len()) }

// Terms returns every term in the set, in ascending order.
func (s *Set) Terms() ([][]byte, error) {
	var out [][]byte
	itr, err := s.fst.Iterator(nil, nil)
	for err == nil {
		key, _ := itr.Current()
		term := make([]byte, len(key))
		copy(term, key)
		out = append(out, term)
		err = itr.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, ferrexerr.SerializationDecoding("fst", err)
	}
	return out, nil
}

// HasPrefix reports whether any member of the set has the given prefix.
func (s *Set) HasPrefix(prefix []byte) bool {
	itr, err := s.fst.Iterator(prefix, nil)
	if err != nil {
		return false
	}
	key, _ := itr.Current()
	return bytes.HasPrefix(key, prefix)
}

// Difference returns a new Set containing the terms of s not present in
// other (spec.md §4.3 steps 10 and 11's "words_fst - to_delete_fst").
func Difference(s, other *Set) (*Set, error) {
	terms, err := s.Terms()
	if err != nil {
		return nil, err
	}
	var kept [][]byte
	for _, t := range terms {
		if !other.Contains(t) {
			kept = append(kept, t)
		}
	}
	return Build(kept)
}

// Close releases the underlying FST's resources.
func (s *Set) Close() error {
	if s.fst == nil {
		return nil
	}
	return s.fst.Close()
}

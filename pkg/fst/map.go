package fst

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// Map is an immutable finite-state transducer from byte strings to uint64
// values, used for the external-ID ↔ DocID bidirectional map (spec.md §3)
// and the field dictionary's sibling structures where a real associated
// value (not just membership) is required.
type Map struct {
	fst *vellum.FST
	raw []byte
}

type mapPair struct {
	key []byte
	val uint64
}

// BuildMap constructs a Map from pairs.
func BuildMap(pairs map[string]uint64) (*Map, error) {
	sorted := make([]mapPair, 0, len(pairs))
	for k, v := range pairs {
		sorted = append(sorted, mapPair{key: []byte(k), val: v})
	}
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i].key, sorted[j].key) < 0 })

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, ferrexerr.SerializationEncoding("fst", err)
	}
	for _, p := range sorted {
		if err := builder.Insert(p.key, p.val); err != nil {
			return nil, ferrexerr.SerializationEncoding("fst", err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, ferrexerr.SerializationEncoding("fst", err)
	}

	return LoadMap(buf.Bytes())
}

// LoadMap deserializes a Map from its vellum container encoding.
func LoadMap(raw []byte) (*Map, error) {
	f, err := vellum.Load(raw)
	if err != nil {
		return nil, ferrexerr.SerializationDecoding("fst", err)
	}
	return &Map{fst: f, raw: raw}, nil
}

// Bytes returns the Map's serialized container encoding.
func (m *Map) Bytes() []byte { return m.raw }

// Get returns the value associated with key, if present.
func (m *Map) Get(key []byte) (uint64, bool) {
	v, exists, err := m.fst.Get(key)
	if err != nil || !exists {
		return 0, false
	}
	return v, true
}

// Len returns the number of keys in the map.
func (m *Map) Len() int { return int(m.fst.Len()) }

// Pairs returns every (key, value) in the map as a Go map, so the result
// carries no key order.
func (m *Map) Pairs() (map[string]uint64, error) {
	out := make(map[string]uint64)
	itr, err := m.fst.Iterator(nil, nil)
	for err == nil {
		key, val := itr.Current()
		k := make([]byte, len(key))
		copy(k, key)
		out[string(k)] = val
		err = itr.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, ferrexerr.SerializationDecoding("fst", err)
	}
	return out, nil
}

// Close releases the underlying FST's resources.
func (m *Map) Close() error {
	if m.fst == nil {
		return nil
	}
	return m.fst.Close()
}

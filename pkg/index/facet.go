package index

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/cerplabs/ferrex/pkg/fielddict"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// facetF64Key encodes a numeric facet value as a sortable big-endian key:
// IEEE-754 bits with the sign bit flipped (and the rest inverted for
// negatives), the standard trick for making float64 bit patterns compare
// in numeric order under byte-lexicographic comparison.
func facetF64Key(fid fielddict.FID, value float64) []byte {
	bits := math.Float64bits(value)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	out := make([]byte, 10)
	binary.BigEndian.PutUint16(out[0:2], fid)
	binary.BigEndian.PutUint64(out[2:10], bits)
	return out
}

func facetStringKey(fid fielddict.FID, value string) []byte {
	out := make([]byte, 2+len(value))
	binary.BigEndian.PutUint16(out[0:2], fid)
	copy(out[2:], value)
	return out
}

// IndexFacetValue records that doc has the given facet value for field,
// maintaining the per-document facet index, the field/kind bitmap, and the
// numeric or string value map (SPEC_FULL.md §4.5).
func (idx *Index) IndexFacetValue(tx *kvstore.Tx, dict *fielddict.Dict, field string, doc uint32, numeric *float64, str *string) error {
	fid := dict.Insert(field)

	if numeric != nil {
		if err := idx.addToPostingBucket(tx, bucketFieldFacetBitmapF64, fidKey(fid), doc); err != nil {
			return err
		}
		if err := tx.Bucket(bucketFieldDocFacetF64).Put(fieldDocKey(fid, doc), float64Bytes(*numeric)); err != nil {
			return err
		}
		if err := idx.addToPostingBucket(tx, bucketFacetF64, facetF64Key(fid, *numeric), doc); err != nil {
			return err
		}
	}

	if str != nil {
		if err := idx.addToPostingBucket(tx, bucketFieldFacetBitmapString, fidKey(fid), doc); err != nil {
			return err
		}
		if err := tx.Bucket(bucketFieldDocFacetString).Put(fieldDocKey(fid, doc), []byte(*str)); err != nil {
			return err
		}
		if err := idx.addToPostingBucket(tx, bucketFacetString, facetStringKey(fid, *str), doc); err != nil {
			return err
		}
	}

	return nil
}

func float64Bytes(v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

// RebuildFacetLevels rebuilds the `(field, level, left, right) → posting`
// numeric facet pyramid from the sorted facet_f64 entries of field, the
// facet analogue of spec.md §4.4's positional level builder, using the
// same G/M parameters. See RebuildFacetStringLevels for the string-valued
// counterpart spec.md §4.3 step 13 requires alongside it.
func (idx *Index) RebuildFacetLevels(tx *kvstore.Tx, dict *fielddict.Dict, field string) error {
	return idx.rebuildFacetLevelPyramid(tx, dict, field, bucketFacetF64, bucketFacetF64Levels)
}

// RebuildFacetStringLevels rebuilds the string-valued counterpart of
// RebuildFacetLevels: a `(field, level, left, right) → posting` pyramid
// over the sorted facet_string entries of field. spec.md §4.3 step 13
// and §4.4 describe a single "facet value map with level pyramids
// analogous to the positional one" for both numeric and string fields;
// this mirrors RebuildFacetLevels using the lexicographic order
// facetStringKey already gives the facet_string bucket.
func (idx *Index) RebuildFacetStringLevels(tx *kvstore.Tx, dict *fielddict.Dict, field string) error {
	return idx.rebuildFacetLevelPyramid(tx, dict, field, bucketFacetString, bucketFacetStringLevels)
}

// rebuildFacetLevelPyramid is the shared group-union builder behind
// RebuildFacetLevels and RebuildFacetStringLevels: it walks the
// sorted level-zero entries of srcBucket for field, grouping them into
// G/M level tuples the same way RebuildPositionLevels does, and appends
// the resulting unions into destBucket.
func (idx *Index) rebuildFacetLevelPyramid(tx *kvstore.Tx, dict *fielddict.Dict, field, srcBucket, destBucket string) error {
	fid, ok := dict.LookupByName(field)
	if !ok {
		return nil
	}

	levelsBucket := tx.Bucket(destBucket)
	if err := clearFieldLevels(levelsBucket, fid); err != nil {
		return err
	}

	type entry struct {
		left, right uint32
		set         *postings.Set
	}
	var entries []entry

	c := tx.Bucket(srcBucket).Cursor()
	prefix := fidKey(fid)
	idxPos := uint32(0)
	for k, v := c.Seek(prefix); c.Valid() && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		set, err := postings.FromBytes(v)
		if err != nil {
			return err
		}
		entries = append(entries, entry{left: idxPos, right: idxPos, set: set})
		idxPos++
	}

	n := len(entries)
	if n == 0 {
		return nil
	}

	ab := levelsBucket.AsAppendBucket()
	var toAppend [][2][]byte

	G, M := idx.GroupSize, idx.MinLevelSize
	for k := 1; n/pow(G, k) >= M; k++ {
		groupSize := pow(G, k)
		for start := 0; start < n; start += groupSize {
			end := start + groupSize
			if end > n {
				end = n
			}
			group := entries[start:end]
			union := postings.New()
			for _, e := range group {
				union = union.Union(e.set)
			}
			key := fieldLevelKey(fid, uint8(k), group[0].left, group[len(group)-1].right)
			raw, err := union.ToBytes()
			if err != nil {
				return err
			}
			toAppend = append(toAppend, [2][]byte{key, raw})
		}
	}

	sort.Slice(toAppend, func(i, j int) bool { return bytes.Compare(toAppend[i][0], toAppend[j][0]) < 0 })
	for _, kv := range toAppend {
		if err := ab.Append(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func clearFieldLevels(b *kvstore.Bucket, fid fielddict.FID) error {
	c := b.Cursor()
	prefix := fidKey(fid)
	for k, _ := c.Seek(prefix); c.Valid() && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if err := c.DeleteCurrent(); err != nil {
			return err
		}
	}
	return nil
}

func fieldLevelKey(fid fielddict.FID, level uint8, left, right uint32) []byte {
	out := make([]byte, 2+9)
	binary.BigEndian.PutUint16(out[0:2], fid)
	copy(out[2:], levelKeySuffix(level, left, right))
	return out
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

func TestIndexFacetValue_NumericValuePopulatesAllThreeTables(t *testing.T) {
	// Given: an empty index
	idx := openTestIndex(t)

	// When: indexing a numeric facet value for one document
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		if err != nil {
			return err
		}
		if err := idx.IndexFacetValue(tx, dict, "price", 7, floatPtr(19.99), nil); err != nil {
			return err
		}
		return idx.saveFieldDict(tx, dict)
	})
	require.NoError(t, err)

	// Then: the field's bitmap, per-doc value, and value-map all see doc 7
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		require.NoError(t, err)
		fid, ok := dict.LookupByName("price")
		require.True(t, ok)

		raw := tx.Bucket(bucketFieldFacetBitmapF64).Get(fidKey(fid))
		require.NotNil(t, raw)
		set, err := postings.FromBytes(raw)
		require.NoError(t, err)
		assert.True(t, set.Contains(7))

		docRaw := tx.Bucket(bucketFieldDocFacetF64).Get(fieldDocKey(fid, 7))
		require.NotNil(t, docRaw)
		assert.Equal(t, float64Bytes(19.99), docRaw)

		valueRaw := tx.Bucket(bucketFacetF64).Get(facetF64Key(fid, 19.99))
		require.NotNil(t, valueRaw)
		return nil
	})
	require.NoError(t, err)
}

func TestFacetF64Key_PreservesNumericOrderingUnderByteCompare(t *testing.T) {
	// Given: a set of numeric values spanning negative, zero and positive
	values := []float64{-100.5, -1, 0, 1, 100.5}

	// When: encoding each as a facet key
	keys := make([][]byte, len(values))
	for i, v := range values {
		keys[i] = facetF64Key(1, v)
	}

	// Then: byte-lexicographic order matches numeric ascending order
	for i := 1; i < len(keys); i++ {
		assert.True(t, string(keys[i-1]) < string(keys[i]),
			"expected key(%v) < key(%v)", values[i-1], values[i])
	}
}

func TestRebuildFacetLevels_BuildsLevelOneWhenEnoughValues(t *testing.T) {
	// Given: 20 documents each with a distinct numeric facet value for
	// "score", enough for one level-1 group (20/4=5 >= M=5)
	idx := openTestIndex(t)
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		if err != nil {
			return err
		}
		for i := uint32(0); i < 20; i++ {
			v := float64(i)
			if err := idx.IndexFacetValue(tx, dict, "score", i, &v, nil); err != nil {
				return err
			}
		}
		return idx.saveFieldDict(tx, dict)
	})
	require.NoError(t, err)

	// When: rebuilding the facet level pyramid for "score"
	err = idx.Store().Update(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		if err != nil {
			return err
		}
		return idx.RebuildFacetLevels(tx, dict, "score")
	})
	require.NoError(t, err)

	// Then: level-1 group entries exist in the facet levels bucket
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		require.NoError(t, err)
		fid, ok := dict.LookupByName("score")
		require.True(t, ok)

		c := tx.Bucket(bucketFacetF64Levels).Cursor()
		found := 0
		prefix := fidKey(fid)
		for k, _ := c.Seek(prefix); c.Valid() && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			found++
		}
		assert.Greater(t, found, 0)
		return nil
	})
	require.NoError(t, err)
}

func TestRebuildFacetStringLevels_BuildsLevelOneWhenEnoughValues(t *testing.T) {
	// Given: 20 documents each with a distinct string facet value for
	// "color", enough for one level-1 group (20/4=5 >= M=5)
	idx := openTestIndex(t)
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		if err != nil {
			return err
		}
		for i := uint32(0); i < 20; i++ {
			v := string(rune('a' + i))
			if err := idx.IndexFacetValue(tx, dict, "color", i, nil, &v); err != nil {
				return err
			}
		}
		return idx.saveFieldDict(tx, dict)
	})
	require.NoError(t, err)

	// When: rebuilding the string facet level pyramid for "color"
	err = idx.Store().Update(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		if err != nil {
			return err
		}
		return idx.RebuildFacetStringLevels(tx, dict, "color")
	})
	require.NoError(t, err)

	// Then: level-1 group entries exist in the string facet levels bucket
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		dict, err := idx.fieldDict(tx)
		require.NoError(t, err)
		fid, ok := dict.LookupByName("color")
		require.True(t, ok)

		c := tx.Bucket(bucketFacetStringLevels).Cursor()
		found := 0
		prefix := fidKey(fid)
		for k, _ := c.Seek(prefix); c.Valid() && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			found++
		}
		assert.Greater(t, found, 0)
		return nil
	})
	require.NoError(t, err)
}

func floatPtr(v float64) *float64 { return &v }

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/geo"
	"github.com/cerplabs/ferrex/pkg/kvstore"
)

func TestIndexGeoPoint_AddsToBitmapAndGridIndex(t *testing.T) {
	// Given: an empty index
	idx := openTestIndex(t)
	sf := geo.Point{Lon: -122.4194, Lat: 37.7749}

	// When: indexing a geo point for document 3
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		return idx.IndexGeoPoint(tx, 3, sf)
	})
	require.NoError(t, err)

	// Then: the geo-tagged bitmap contains the doc, and the grid index
	// recovers the same point
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		bitmap, err := idx.GeoDocids(tx)
		require.NoError(t, err)
		assert.True(t, bitmap.Contains(3))

		grid, err := idx.LoadGridIndex(tx)
		require.NoError(t, err)
		p, ok := grid.Point(3)
		require.True(t, ok)
		assert.InDelta(t, sf.Lon, p.Lon, 1e-9)
		assert.InDelta(t, sf.Lat, p.Lat, 1e-9)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteGeoPoint_RemovesFromBitmapAndStore(t *testing.T) {
	// Given: a geo-tagged document
	idx := openTestIndex(t)
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		return idx.IndexGeoPoint(tx, 1, geo.Point{Lon: 1, Lat: 2})
	})
	require.NoError(t, err)

	// When: removing the document's geo point directly
	err = idx.Store().Update(func(tx *kvstore.Tx) error {
		return idx.DeleteGeoPoint(tx, 1)
	})
	require.NoError(t, err)

	// Then: it is gone from the bitmap and the grid index rebuild
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		bitmap, err := idx.GeoDocids(tx)
		require.NoError(t, err)
		assert.False(t, bitmap.Contains(1))

		grid, err := idx.LoadGridIndex(tx)
		require.NoError(t, err)
		_, ok := grid.Point(1)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteDocuments_AlsoRemovesGeoPoint(t *testing.T) {
	// Given: a document with both a primary key and a geo point
	idx := openTestIndex(t)
	var docID uint32
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		ids, err := idx.AddDocuments(tx, docObj(map[string]docvalue.Value{"id": docvalue.Number(5)}), AddOptions{PrimaryKeyField: "id"})
		if err != nil {
			return err
		}
		docID = ids[0]
		return idx.IndexGeoPoint(tx, docID, geo.Point{Lon: 10, Lat: 20})
	})
	require.NoError(t, err)

	// When: deleting the document through the normal deletion pipeline
	err = idx.Store().Update(func(tx *kvstore.Tx) error {
		batch := idx.NewDeletionBatch()
		batch.Delete(docID)
		_, err := idx.DeleteDocuments(tx, batch)
		return err
	})
	require.NoError(t, err)

	// Then: its geo point is gone too
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		bitmap, err := idx.GeoDocids(tx)
		require.NoError(t, err)
		assert.False(t, bitmap.Contains(docID))
		return nil
	})
	require.NoError(t, err)
}

package index

import (
	"encoding/binary"
	"math"

	"github.com/cerplabs/ferrex/pkg/geo"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// geoPointKeyPrefix separates the per-document point store from the rest
// of bucketMain's singleton keys, none of which begins with this prefix.
const geoPointKeyPrefix = "geo_point:"

// IndexGeoPoint records that doc is located at p, adding it to the
// geo-tagged bitmap and storing the point that LoadGridIndex builds the
// grid index from (SPEC_FULL.md §4.6).
func (idx *Index) IndexGeoPoint(tx *kvstore.Tx, doc uint32, p geo.Point) error {
	bitmap, err := idx.geoDocids(tx)
	if err != nil {
		return err
	}
	bitmap.Add(doc)
	if err := idx.saveGeoDocids(tx, bitmap); err != nil {
		return err
	}
	if err := idx.putGeoPoint(tx, doc, p); err != nil {
		return err
	}
	return nil
}

// DeleteGeoPoint removes doc from the geo-tagged bitmap and its stored
// point.
func (idx *Index) DeleteGeoPoint(tx *kvstore.Tx, doc uint32) error {
	bitmap, err := idx.geoDocids(tx)
	if err != nil {
		return err
	}
	bitmap.Remove(doc)
	if err := idx.saveGeoDocids(tx, bitmap); err != nil {
		return err
	}
	return tx.Bucket(bucketMain).Delete(geoPointKey(doc))
}

// GeoDocids returns the bitmap of geo-tagged documents.
func (idx *Index) GeoDocids(tx *kvstore.Tx) (*postings.Set, error) {
	return idx.geoDocids(tx)
}

// LoadGridIndex rebuilds an in-memory geo.GridIndex from the persisted
// per-document points, for pkg/query.GeoCriterion to prune candidates by
// proximity before any exact distance computation.
func (idx *Index) LoadGridIndex(tx *kvstore.Tx) (*geo.GridIndex, error) {
	bitmap, err := idx.geoDocids(tx)
	if err != nil {
		return nil, err
	}
	grid := geo.NewGridIndex()
	for _, docID := range bitmap.ToSlice() {
		p, ok := idx.geoPoint(tx, docID)
		if ok {
			grid.Insert(docID, p)
		}
	}
	return grid, nil
}

func (idx *Index) geoDocids(tx *kvstore.Tx) (*postings.Set, error) {
	raw := tx.Bucket(bucketMain).Get([]byte(keyGeoDocids))
	if raw == nil {
		return postings.New(), nil
	}
	return postings.FromBytes(raw)
}

func (idx *Index) saveGeoDocids(tx *kvstore.Tx, set *postings.Set) error {
	raw, err := set.ToBytes()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMain).Put([]byte(keyGeoDocids), raw)
}

func geoPointKey(docID uint32) []byte {
	return append([]byte(geoPointKeyPrefix), docKey(docID)...)
}

// encodeGeoPoint/decodeGeoPoint store a Point as two big-endian float64
// bit patterns (lon, lat), the same fixed-width convention as the facet
// numeric encoding in facet.go.
func encodeGeoPoint(p geo.Point) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[0:8], math.Float64bits(p.Lon))
	binary.BigEndian.PutUint64(out[8:16], math.Float64bits(p.Lat))
	return out
}

func decodeGeoPoint(raw []byte) geo.Point {
	return geo.Point{
		Lon: math.Float64frombits(binary.BigEndian.Uint64(raw[0:8])),
		Lat: math.Float64frombits(binary.BigEndian.Uint64(raw[8:16])),
	}
}

func (idx *Index) putGeoPoint(tx *kvstore.Tx, docID uint32, p geo.Point) error {
	return tx.Bucket(bucketMain).Put(geoPointKey(docID), encodeGeoPoint(p))
}

func (idx *Index) geoPoint(tx *kvstore.Tx, docID uint32) (geo.Point, bool) {
	raw := tx.Bucket(bucketMain).Get(geoPointKey(docID))
	if raw == nil {
		return geo.Point{}, false
	}
	return decodeGeoPoint(raw), true
}

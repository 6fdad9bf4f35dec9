package query

import (
	"context"

	"github.com/cerplabs/ferrex/pkg/geo"
	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// GeoCriterion accepts geo-tagged documents within radiusMeters of
// center, scoring closer documents higher. It prunes with the grid index
// before computing any exact haversine distance, the coarse-then-exact
// shape SPEC_FULL.md §4.6 grounds in original_source's own bounded-scan
// geo criterion.
type GeoCriterion struct {
	center       geo.Point
	radiusMeters float64

	distances map[uint32]float64
}

// NewGeoCriterion builds a GeoCriterion over every geo-tagged document
// within radiusMeters of center.
func NewGeoCriterion(idx *index.Index, tx *kvstore.Tx, center geo.Point, radiusMeters float64) (*GeoCriterion, error) {
	grid, err := idx.LoadGridIndex(tx)
	if err != nil {
		return nil, err
	}

	cells := geo.RadiusCellsForMeters(radiusMeters, center.Lat)
	candidates := grid.Nearby(center, cells)

	c := &GeoCriterion{center: center, radiusMeters: radiusMeters, distances: map[uint32]float64{}}
	for _, docID := range candidates {
		p, ok := grid.Point(docID)
		if !ok {
			continue
		}
		d := geo.DistanceMeters(center, p)
		if d <= radiusMeters {
			c.distances[docID] = d
		}
	}
	return c, nil
}

func (c *GeoCriterion) Eval(ctx context.Context, candidates *postings.Set) (*postings.Set, error) {
	out := postings.New()
	if candidates == nil {
		for docID := range c.distances {
			out.Add(docID)
		}
		return out, nil
	}
	for _, docID := range candidates.ToSlice() {
		if _, ok := c.distances[docID]; ok {
			out.Add(docID)
		}
	}
	return out, nil
}

// Score rewards proximity to center: 1.0 at distance 0, decaying linearly
// to 0 at radiusMeters.
func (c *GeoCriterion) Score(docID uint32) float64 {
	d, ok := c.distances[docID]
	if !ok || c.radiusMeters <= 0 {
		return 0
	}
	return 1 - (d / c.radiusMeters)
}

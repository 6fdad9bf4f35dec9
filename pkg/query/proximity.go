package query

import (
	"context"

	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// maxProximityDistance mirrors pkg/index's ingestion-time cap: no
// word-pair entry is ever recorded beyond this distance, so querying
// further is guaranteed empty.
const maxProximityDistance = 8

// ProximityCriterion accepts documents where word1 is followed by word2
// within maxDistance token positions, scoring closer pairs higher. It
// consults the precomputed word_pair_proximity table directly rather than
// the positional level pyramid — the pyramid accelerates *range* sweeps
// over many positions, which this pairwise lookup does not need, but a
// caller that wants a coarse candidate set before an exact phrase check
// can also use PyramidCandidates.
type ProximityCriterion struct {
	idx          *index.Index
	tx           *kvstore.Tx
	word1, word2 string
	maxDistance  uint8

	matches map[uint32]uint8 // docID -> closest observed distance
}

// NewProximityCriterion builds a ProximityCriterion accepting documents
// where word2 follows word1 within maxDistance positions (capped at
// maxProximityDistance, the ingestion-time ceiling).
func NewProximityCriterion(idx *index.Index, tx *kvstore.Tx, word1, word2 string, maxDistance uint8) (*ProximityCriterion, error) {
	if maxDistance > maxProximityDistance {
		maxDistance = maxProximityDistance
	}
	c := &ProximityCriterion{idx: idx, tx: tx, word1: word1, word2: word2, maxDistance: maxDistance, matches: map[uint32]uint8{}}

	for d := uint8(1); d <= maxDistance; d++ {
		set, err := idx.WordPairProximity(tx, []byte(word1), []byte(word2), d)
		if err != nil {
			return nil, err
		}
		for _, docID := range set.ToSlice() {
			if best, ok := c.matches[docID]; !ok || d < best {
				c.matches[docID] = d
			}
		}
	}
	return c, nil
}

func (c *ProximityCriterion) Eval(ctx context.Context, candidates *postings.Set) (*postings.Set, error) {
	out := postings.New()
	if candidates == nil {
		for docID := range c.matches {
			out.Add(docID)
		}
		return out, nil
	}
	for _, docID := range candidates.ToSlice() {
		if _, ok := c.matches[docID]; ok {
			out.Add(docID)
		}
	}
	return out, nil
}

// Score rewards closer pairs: a distance-1 (adjacent) match scores 1.0,
// decaying linearly to 1/maxDistance at distance maxDistance.
func (c *ProximityCriterion) Score(docID uint32) float64 {
	d, ok := c.matches[docID]
	if !ok || c.maxDistance == 0 {
		return 0
	}
	return float64(c.maxDistance-d+1) / float64(c.maxDistance)
}

// PyramidCandidates returns every document with word in the position
// range [left, right] at the given level of the positional level
// pyramid, the coarse-sweep use spec.md §4.4 designs the pyramid for.
func PyramidCandidates(idx *index.Index, tx *kvstore.Tx, word string, level uint8, left, right uint32) (*postings.Set, error) {
	return idx.WordLevelPostings(tx, []byte(word), level, left, right)
}

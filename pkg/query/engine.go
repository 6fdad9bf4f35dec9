package query

import (
	"context"
	"sort"

	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// Engine runs a criterion tree against an opened Index, the host-side
// search entry point of SPEC_FULL.md §6's "criterion tree construction".
type Engine struct {
	idx *index.Index
}

// NewEngine returns an Engine over idx.
func NewEngine(idx *index.Index) *Engine {
	return &Engine{idx: idx}
}

// Search composes criteria left-to-right: each is Eval'd against the
// running candidate set (starting from the full live-document universe),
// narrowing it in turn, and every surviving document's score is the sum
// of every criterion's Score for it. Results are returned sorted by
// descending score, with DocID as a stable tiebreaker, capped at limit
// (0 means unlimited).
func (e *Engine) Search(ctx context.Context, tx *kvstore.Tx, criteria []Criterion, limit int) ([]Hit, error) {
	live, err := e.idx.LiveDocs(tx)
	if err != nil {
		return nil, err
	}

	var candidates *postings.Set = live
	for _, c := range criteria {
		next, err := c.Eval(ctx, candidates)
		if err != nil {
			return nil, err
		}
		candidates = next
		if candidates.IsEmpty() {
			break
		}
	}

	hits := make([]Hit, 0, candidates.Len())
	for _, docID := range candidates.ToSlice() {
		var score float64
		for _, c := range criteria {
			score += c.Score(docID)
		}
		hits = append(hits, Hit{DocID: docID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

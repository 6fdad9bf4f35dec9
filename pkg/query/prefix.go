package query

import (
	"context"

	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// PrefixCriterion accepts documents containing any word beginning with
// prefix, the typeahead/partial-term counterpart to TermCriterion. It
// unions the posting sets of every matching prefix row rather than
// re-scanning word_docids, since prefix_docids is already keyed by the
// prefix strings themselves.
type PrefixCriterion struct {
	idx    *index.Index
	tx     *kvstore.Tx
	prefix string

	matches *postings.Set
	idf     float64
}

// NewPrefixCriterion builds a PrefixCriterion for prefix.
func NewPrefixCriterion(idx *index.Index, tx *kvstore.Tx, prefix string) (*PrefixCriterion, error) {
	c := &PrefixCriterion{idx: idx, tx: tx, prefix: prefix}

	prefixes, err := idx.PrefixesFST(tx)
	if err != nil {
		return nil, err
	}
	if !prefixes.Contains([]byte(prefix)) {
		c.matches = postings.New()
		return c, nil
	}

	matches, err := idx.PrefixPostings(tx, []byte(prefix))
	if err != nil {
		return nil, err
	}
	c.matches = matches

	live, err := idx.LiveDocs(tx)
	if err != nil {
		return nil, err
	}
	total := live.Len()
	df := matches.Len()
	if total > 0 && df > 0 {
		c.idf = idfScore(total, df)
	}
	return c, nil
}

func (c *PrefixCriterion) Eval(ctx context.Context, candidates *postings.Set) (*postings.Set, error) {
	if candidates == nil {
		return c.matches.Clone(), nil
	}
	return candidates.Intersect(c.matches), nil
}

func (c *PrefixCriterion) Score(docID uint32) float64 {
	return c.idf
}

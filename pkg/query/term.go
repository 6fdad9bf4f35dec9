package query

import (
	"context"

	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// TermCriterion accepts documents whose word postings contain an exact
// term, scoring each hit by the term's inverse document frequency over the
// live document count (idfScore: rarer terms score higher), without the
// term-frequency and length normalization a full BM25 implementation adds.
type TermCriterion struct {
	idx  *index.Index
	tx   *kvstore.Tx
	term string

	matches *postings.Set
	idf     float64
}

// NewTermCriterion builds a TermCriterion for term, consulting the words
// FST first so an unknown term short-circuits to an empty posting set
// instead of a wasted bucket read.
func NewTermCriterion(idx *index.Index, tx *kvstore.Tx, term string) (*TermCriterion, error) {
	c := &TermCriterion{idx: idx, tx: tx, term: term}

	words, err := idx.WordsFST(tx)
	if err != nil {
		return nil, err
	}
	if !words.Contains([]byte(term)) {
		c.matches = postings.New()
		return c, nil
	}

	matches, err := idx.WordPostings(tx, []byte(term))
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

func (c *TermCriterion) Eval(ctx context.Context, candidates *postings.Set) (*postings.Set, error) {
	if candidates == nil {
		return c.matches.Clone(), nil
	}
	return candidates.Intersect(c.matches), nil
}

func (c *TermCriterion) Score(docID uint32) float64 {
	return c.idf
}

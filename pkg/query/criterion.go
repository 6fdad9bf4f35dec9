// Package query implements ranked search over an opened pkg/index.Index:
// the Criterion contract spec.md describes as "criterion tree construction"
// external to the core, and the concrete term/prefix/proximity/geo
// criteria composed by Engine.Search.
package query

import (
	"context"

	"github.com/cerplabs/ferrex/pkg/postings"
)

// Criterion narrows a candidate set and contributes a score for any
// document that survives. The core only guarantees postings are correct
// and disjoint from deleted documents; everything about ranking lives
// here, outside pkg/index.
type Criterion interface {
	// Eval returns the subset of candidates this criterion accepts. A nil
	// candidates set means "start from the full live-document universe".
	Eval(ctx context.Context, candidates *postings.Set) (*postings.Set, error)

	// Score returns this criterion's contribution to docID's rank. Called
	// only for documents Eval accepted.
	Score(docID uint32) float64
}

// Hit is one scored, ranked search result.
type Hit struct {
	DocID uint32
	Score float64
}

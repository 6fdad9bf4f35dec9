package index

import (
	"github.com/cerplabs/ferrex/pkg/fst"
	"github.com/cerplabs/ferrex/pkg/kvstore"
)

// rebuildWordsAndPrefixesFST rewrites the words and prefixes FSTs from the
// current key sets of word_docids and prefix_docids. Vellum has no cheap
// incremental insert into an existing FST (SPEC_FULL.md's §4.3 grounding
// note on pkg/fst), so additions rebuild from the authoritative posting
// tables; deletions instead use the targeted difference of spec.md §4.3
// steps 10-11.
func (idx *Index) rebuildWordsAndPrefixesFST(tx *kvstore.Tx) error {
	words, err := collectKeys(tx, bucketWordDocids)
	if err != nil {
		return err
	}
	wordsFST, err := fst.Build(words)
	if err != nil {
		return err
	}
	if err := idx.saveFST(tx, keyWordsFST, wordsFST); err != nil {
		return err
	}

	prefixes, err := collectKeys(tx, bucketPrefixDocids)
	if err != nil {
		return err
	}
	prefixesFST, err := fst.Build(prefixes)
	if err != nil {
		return err
	}
	return idx.saveFST(tx, keyPrefixesFST, prefixesFST)
}

func collectKeys(tx *kvstore.Tx, bucket string) ([][]byte, error) {
	var out [][]byte
	c := tx.Bucket(bucket).Cursor()
	for k, _ := c.First(); c.Valid(); k, _ = c.Next() {
		cp := make([]byte, len(k))
		copy(cp, k)
		out = append(out, cp)
	}
	return out, nil
}

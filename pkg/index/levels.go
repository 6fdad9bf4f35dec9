package index

import (
	"bytes"
	"sort"

	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// levelZeroEntry is one level-0 row of the word_level_positions table,
// kept in memory across the clear phase (spec.md §4.4 step 2's "external
// sorted buffer" — see SPEC_FULL.md §4.4 for why this engine keeps the
// buffer in memory rather than spilling to a temp file).
type levelZeroEntry struct {
	left, right uint32
	set         *postings.Set
}

// RebuildPositionLevels recomputes the multi-resolution positional pyramid
// `(word, level, left, right) → posting` from scratch, from the level-0
// entries of the same table, per spec.md §4.4's algorithm.
func (idx *Index) RebuildPositionLevels(tx *kvstore.Tx) error {
	G, M := idx.GroupSize, idx.MinLevelSize
	if G < 2 {
		G = 2
	}

	byWord, order, err := idx.collectLevelZero(tx)
	if err != nil {
		return err
	}

	// Step 1: clear all non-zero-level entries.
	if err := idx.clearNonZeroLevels(tx); err != nil {
		return err
	}

	// Step 2 + 3: for each word, build higher levels from its level-0
	// run, then append everything (level 0 unchanged, plus new levels) in
	// sorted key order via the append-only writer.
	type kv struct {
		key, value []byte
	}
	var all []kv

	for _, word := range order {
		entries := byWord[word]
		n := len(entries)

		for _, e := range entries {
			raw, err := e.set.ToBytes()
			if err != nil {
				return err
			}
			all = append(all, kv{key: wordLevelKey([]byte(word), 0, e.left, e.right), value: raw})
		}

		for k := 1; n/pow(G, k) >= M; k++ {
			groupSize := pow(G, k)
			for start := 0; start < n; start += groupSize {
				end := start + groupSize
				if end > n {
					end = n
				}
				group := entries[start:end]
				union := postings.New()
				for _, e := range group {
					union = union.Union(e.set)
				}
				raw, err := union.ToBytes()
				if err != nil {
					return err
				}
				key := wordLevelKey([]byte(word), uint8(k), group[0].left, group[len(group)-1].right)
				all = append(all, kv{key: key, value: raw})
			}
		}
	}

	sort.Slice(all, func(i, j int) bool { return bytes.Compare(all[i].key, all[j].key) < 0 })

	b := tx.Bucket(bucketWordLevelPositions)
	ab := b.AsAppendBucket()
	for _, e := range all {
		if err := ab.Append(e.key, e.value); err != nil {
			return err
		}
	}

	return idx.clearPyramidsStale(tx)
}

// collectLevelZero reads every level-0 entry of word_level_positions into
// memory, grouped by word in ascending (left, right) order, and returns the
// words in ascending order for deterministic output.
func (idx *Index) collectLevelZero(tx *kvstore.Tx) (map[string][]levelZeroEntry, []string, error) {
	byWord := map[string][]levelZeroEntry{}
	c := tx.Bucket(bucketWordLevelPositions).Cursor()
	for k, v := c.First(); c.Valid(); k, v = c.Next() {
		word, level, left, right := splitWordLevelKey(k)
		if level != 0 {
			continue
		}
		set, err := postings.FromBytes(v)
		if err != nil {
			return nil, nil, err
		}
		byWord[string(word)] = append(byWord[string(word)], levelZeroEntry{left: left, right: right, set: set})
	}

	words := make([]string, 0, len(byWord))
	for w := range byWord {
		words = append(words, w)
	}
	sort.Strings(words)
	for _, w := range words {
		entries := byWord[w]
		sort.Slice(entries, func(i, j int) bool { return entries[i].left < entries[j].left })
	}
	return byWord, words, nil
}

func (idx *Index) clearNonZeroLevels(tx *kvstore.Tx) error {
	b := tx.Bucket(bucketWordLevelPositions)
	c := b.Cursor()
	for k, _ := c.First(); c.Valid(); k, _ = c.Next() {
		_, level, _, _ := splitWordLevelKey(k)
		if level != 0 {
			if err := c.DeleteCurrent(); err != nil {
				return err
			}
		}
	}
	return nil
}

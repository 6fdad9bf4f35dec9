package index

import (
	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/fielddict"
	"github.com/cerplabs/ferrex/pkg/fst"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
	"github.com/cerplabs/ferrex/pkg/tokenize"
)

// AddOptions configures AddDocuments. Ingestion itself is named an external
// collaborator by spec.md §1 ("consumed by indexing (out of scope)"); this
// is the engine's own minimal wiring of that boundary, needed to exercise
// the deletion pipeline and level builder end to end, grounded on how
// original_source/milli's own `index_documents` update drives the same
// tables (word postings, positions, field distribution) from a tokenizer.
type AddOptions struct {
	PrimaryKeyField string
	Tokenizer       tokenize.Tokenizer
	TextFields      []string // field names to tokenize; nil means all string fields
}

// AddDocuments stores each document of docs (an Object, or an Array of
// Objects) under a fresh autogenerated DocID, populating the documents
// table, live-docs bitmap, field distribution, and the external-ID map from
// opts.PrimaryKeyField, plus word/prefix postings and positions when
// opts.Tokenizer is set. Returns the assigned DocIDs in input order.
func (idx *Index) AddDocuments(tx *kvstore.Tx, docs docvalue.Value, opts AddOptions) ([]uint32, error) {
	var objs []docvalue.Value
	switch docs.Kind() {
	case docvalue.KindObject:
		objs = []docvalue.Value{docs}
	case docvalue.KindArray:
		for _, item := range docs.AsArray() {
			if item.Kind() != docvalue.KindObject {
				return nil, ferrexerr.InvalidDocumentFormat("sequence element is not a mapping")
			}
			objs = append(objs, item)
		}
	default:
		return nil, ferrexerr.InvalidDocumentFormat("document is neither a mapping nor a sequence of mappings")
	}

	dict, err := idx.fieldDict(tx)
	if err != nil {
		return nil, err
	}
	live, err := idx.liveDocs(tx)
	if err != nil {
		return nil, err
	}
	dist, err := idx.fieldDistribution(tx)
	if err != nil {
		return nil, err
	}
	extIDs, err := idx.externalIDs(tx)
	if err != nil {
		return nil, err
	}
	extPairs, err := extIDs.Pairs()
	if err != nil {
		return nil, err
	}

	if opts.PrimaryKeyField != "" {
		if err := idx.SetPrimaryKeyField(tx, opts.PrimaryKeyField); err != nil {
			return nil, err
		}
	}

	var docIDs []uint32
	for _, obj := range objs {
		docID, err := idx.nextDocID(tx)
		if err != nil {
			return nil, err
		}

		record, err := encodeRecord(dict, obj)
		if err != nil {
			return nil, err
		}
		if err := tx.Bucket(bucketDocuments).Put(docKey(docID), record); err != nil {
			return nil, err
		}
		live.Add(docID)

		if opts.PrimaryKeyField != "" {
			if pkVal, ok := obj.AsObject()[opts.PrimaryKeyField]; ok {
				extID, err := docvalue.NormalizePrimaryKey(pkVal)
				if err != nil {
					return nil, err
				}
				extPairs[extID] = uint64(docID)
			}
		}

		for _, name := range obj.ObjectKeys() {
			dist[name]++
		}

		if opts.Tokenizer != nil {
			if err := idx.indexDocumentText(tx, dict, docID, obj, opts); err != nil {
				return nil, err
			}
		}

		docIDs = append(docIDs, docID)
	}

	if err := idx.saveFieldDict(tx, dict); err != nil {
		return nil, err
	}
	if err := idx.saveLiveDocs(tx, live); err != nil {
		return nil, err
	}
	if err := idx.saveFieldDistribution(tx, dist); err != nil {
		return nil, err
	}
	newExtIDs, err := fst.BuildMap(extPairs)
	if err != nil {
		return nil, err
	}
	if err := idx.saveExternalIDs(tx, newExtIDs); err != nil {
		return nil, err
	}

	if err := idx.rebuildWordsAndPrefixesFST(tx); err != nil {
		return nil, err
	}

	return docIDs, nil
}

// indexDocumentText tokenizes the configured text fields of obj and
// populates word postings, prefix postings, per-document positions, and
// the field word-count histogram.
func (idx *Index) indexDocumentText(tx *kvstore.Tx, dict *fielddict.Dict, docID uint32, obj docvalue.Value, opts AddOptions) error {
	fields := opts.TextFields
	if fields == nil {
		fields = obj.ObjectKeys()
	}

	for _, name := range fields {
		v, ok := obj.AsObject()[name]
		if !ok || v.Kind() != docvalue.KindString {
			continue
		}
		fid := dict.Insert(name)

		tokens := opts.Tokenizer.Tokenize(v.AsString())
		for _, tok := range tokens {
			word := []byte(tok.Term)

			if err := idx.addPosition(tx, docID, word, uint32(tok.Position)); err != nil {
				return err
			}
			if err := idx.addLevelZeroPosition(tx, word, uint32(tok.Position), docID); err != nil {
				return err
			}
			if err := idx.addToPostingBucket(tx, bucketWordDocids, word, docID); err != nil {
				return err
			}
			for _, prefix := range prefixesOf(tok.Term) {
				if err := idx.addToPostingBucket(tx, bucketPrefixDocids, []byte(prefix), docID); err != nil {
					return err
				}
			}
		}

		if len(tokens) > 0 {
			if err := idx.addToPostingBucket(tx, bucketFieldWordCount, fieldWordCountKey(fid, uint32(len(tokens))), docID); err != nil {
				return err
			}
		}

		if err := idx.indexWordPairProximity(tx, docID, tokens); err != nil {
			return err
		}
	}
	return nil
}

// maxProximityDistance bounds how far apart two tokens may be for the
// pair to be worth recording; ProximityCriterion only ever asks about
// small windows, and without a cap the word_pair_proximity table would
// grow quadratically with document length.
const maxProximityDistance = 8

// indexWordPairProximity records, for every pair of tokens within
// maxProximityDistance positions of each other, an entry at
// (word1, word2, distance) in word_pair_proximity — the table
// ProximityCriterion consults to score phrase-adjacency without
// rescanning doc_word_positions for every query.
func (idx *Index) indexWordPairProximity(tx *kvstore.Tx, docID uint32, tokens []tokenize.Token) error {
	for i, a := range tokens {
		for j := i + 1; j < len(tokens); j++ {
			b := tokens[j]
			distance := b.Position - a.Position
			if distance <= 0 {
				continue
			}
			if distance > maxProximityDistance {
				break
			}
			key := wordPairKey([]byte(a.Term), []byte(b.Term), uint8(distance))
			if err := idx.addToPostingBucket(tx, bucketWordPairProximity, key, docID); err != nil {
				return err
			}
		}
	}
	return nil
}

// prefixesOf returns the length-3..len(word)-1 prefixes of word, the
// prefix universe the prefix postings/FST are built over.
func prefixesOf(word string) []string {
	const minPrefixLen = 3
	if len(word) <= minPrefixLen {
		return nil
	}
	var out []string
	for l := minPrefixLen; l < len(word); l++ {
		out = append(out, word[:l])
	}
	return out
}

func (idx *Index) addPosition(tx *kvstore.Tx, docID uint32, word []byte, position uint32) error {
	b := tx.Bucket(bucketDocWordPositions)
	key := docWordKey(docID, word)
	raw := b.Get(key)
	var set *postings.Set
	var err error
	if raw == nil {
		set = postings.New()
	} else {
		set, err = postings.FromBytes(raw)
		if err != nil {
			return err
		}
	}
	set.Add(position)
	out, err := set.ToBytes()
	if err != nil {
		return err
	}
	return b.Put(key, out)
}

// addLevelZeroPosition records that docID has word at the exact position
// left==right==position, the level-0 granularity the positional level
// builder (spec.md §4.4) groups into higher-resolution buckets.
func (idx *Index) addLevelZeroPosition(tx *kvstore.Tx, word []byte, position uint32, docID uint32) error {
	key := wordLevelKey(word, 0, position, position)
	return idx.addToPostingBucket(tx, bucketWordLevelPositions, key, docID)
}

func (idx *Index) addToPostingBucket(tx *kvstore.Tx, bucket string, key []byte, docID uint32) error {
	b := tx.Bucket(bucket)
	raw := b.Get(key)
	var set *postings.Set
	var err error
	if raw == nil {
		set = postings.New()
	} else {
		set, err = postings.FromBytes(raw)
		if err != nil {
			return err
		}
	}
	set.Add(docID)
	out, err := set.ToBytes()
	if err != nil {
		return err
	}
	return b.Put(key, out)
}

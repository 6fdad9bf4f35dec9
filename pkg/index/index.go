package index

import (
	"time"

	"github.com/cerplabs/ferrex/pkg/fielddict"
	"github.com/cerplabs/ferrex/pkg/fst"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// allBuckets lists every bucket an Index expects to exist, created on
// first Open.
var allBuckets = []string{
	bucketMain,
	bucketDocuments,
	bucketWordDocids,
	bucketPrefixDocids,
	bucketDocWordPositions,
	bucketWordLevelPositions,
	bucketPrefixLevelPositions,
	bucketWordPairProximity,
	bucketPrefixWordProximity,
	bucketFieldWordCount,
	bucketFacetF64,
	bucketFacetString,
	bucketFieldDocFacetF64,
	bucketFieldDocFacetString,
	bucketFieldFacetBitmapF64,
	bucketFieldFacetBitmapString,
	bucketFacetF64Levels,
	bucketFacetStringLevels,
}

// Index is the host-side wrapper around an opened kvstore.Store, owning
// the bucket layout and schema described in spec.md §3. The store itself
// enforces the single-writer envelope (pkg/kvstore.Store.Open's flock
// guard); Index only adds the domain's bucket wiring on top.
type Index struct {
	store *kvstore.Store

	// GroupSize and MinLevelSize are the positional/facet level pyramid
	// parameters (spec.md §4.4's G and M), configurable per
	// SPEC_FULL.md §4.4.
	GroupSize    int
	MinLevelSize int
}

// Open opens (creating if necessary) the index directory at dir.
func Open(dir string) (*Index, error) {
	return OpenWithSize(dir, 0)
}

// OpenWithSize is like Open, but sizes bbolt's initial memory map
// according to sizeMB (0 uses bbolt's own default).
func OpenWithSize(dir string, sizeMB int) (*Index, error) {
	store, err := kvstore.OpenWithSize(dir, sizeMB)
	if err != nil {
		return nil, err
	}
	idx := &Index{store: store, GroupSize: 4, MinLevelSize: 5}
	if err := store.Update(func(tx *kvstore.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = store.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the underlying store and its write lock.
func (idx *Index) Close() error { return idx.store.Close() }

// Store exposes the underlying kvstore.Store for callers (e.g. pkg/query)
// that need to open read transactions directly.
func (idx *Index) Store() *kvstore.Store { return idx.store }

// SetPrimaryKeyField records the name of the field used as each document's
// primary key, resolved to a FID at deletion time (spec.md §4.3 step 5).
func (idx *Index) SetPrimaryKeyField(tx *kvstore.Tx, name string) error {
	return tx.Bucket(bucketMain).Put([]byte(keyPrimaryKeyField), []byte(name))
}

func (idx *Index) primaryKeyField(tx *kvstore.Tx) (string, bool) {
	v := tx.Bucket(bucketMain).Get([]byte(keyPrimaryKeyField))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// fieldDict loads the persisted index-scoped field dictionary, or an empty
// one if none has been written yet.
func (idx *Index) fieldDict(tx *kvstore.Tx) (*fielddict.Dict, error) {
	raw := tx.Bucket(bucketMain).Get([]byte(keyFields))
	if raw == nil {
		return fielddict.New(), nil
	}
	return decodeFieldDict(raw)
}

// saveFieldDict persists dict as a leading 4-byte BE entry count followed
// by fielddict.Dict's own (FID, name_len, name) tuple encoding, the same
// shape used for the batch container's trailing metadata record.
func (idx *Index) saveFieldDict(tx *kvstore.Tx, dict *fielddict.Dict) error {
	raw, err := encodeFieldDict(dict)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMain).Put([]byte(keyFields), raw)
}

// liveDocs loads the current live-DocID posting set.
func (idx *Index) liveDocs(tx *kvstore.Tx) (*postings.Set, error) {
	raw := tx.Bucket(bucketMain).Get([]byte(keyLiveDocs))
	if raw == nil {
		return postings.New(), nil
	}
	return postings.FromBytes(raw)
}

func (idx *Index) saveLiveDocs(tx *kvstore.Tx, set *postings.Set) error {
	raw, err := set.ToBytes()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMain).Put([]byte(keyLiveDocs), raw)
}

// wordsFST loads the persisted words FST, or an empty one.
func (idx *Index) wordsFST(tx *kvstore.Tx) (*fst.Set, error) {
	return idx.loadFSTOrEmpty(tx, keyWordsFST)
}

func (idx *Index) prefixesFST(tx *kvstore.Tx) (*fst.Set, error) {
	return idx.loadFSTOrEmpty(tx, keyPrefixesFST)
}

func (idx *Index) loadFSTOrEmpty(tx *kvstore.Tx, key string) (*fst.Set, error) {
	raw := tx.Bucket(bucketMain).Get([]byte(key))
	if raw == nil {
		return fst.Build(nil)
	}
	return fst.Load(raw)
}

func (idx *Index) saveFST(tx *kvstore.Tx, key string, set *fst.Set) error {
	return tx.Bucket(bucketMain).Put([]byte(key), set.Bytes())
}

// externalIDs loads the persisted external-ID ↔ DocID map.
func (idx *Index) externalIDs(tx *kvstore.Tx) (*fst.Map, error) {
	raw := tx.Bucket(bucketMain).Get([]byte(keyExternalIDs))
	if raw == nil {
		return fst.BuildMap(nil)
	}
	return fst.LoadMap(raw)
}

func (idx *Index) saveExternalIDs(tx *kvstore.Tx, m *fst.Map) error {
	return tx.Bucket(bucketMain).Put([]byte(keyExternalIDs), m.Bytes())
}

// fieldDistribution loads the persisted field name → occurrence count map.
func (idx *Index) fieldDistribution(tx *kvstore.Tx) (map[string]uint64, error) {
	raw := tx.Bucket(bucketMain).Get([]byte(keyFieldDistribution))
	if raw == nil {
		return map[string]uint64{}, nil
	}
	return decodeFieldDistribution(raw)
}

func (idx *Index) saveFieldDistribution(tx *kvstore.Tx, dist map[string]uint64) error {
	raw := encodeFieldDistribution(dist)
	return tx.Bucket(bucketMain).Put([]byte(keyFieldDistribution), raw)
}

// stampUpdatedAt records the current time as the index's updated_at
// timestamp (spec.md §4.3 step 1).
func (idx *Index) stampUpdatedAt(tx *kvstore.Tx) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return tx.Bucket(bucketMain).Put([]byte(keyUpdatedAt), []byte(now))
}

// markPyramidsStale flags that the positional/facet level pyramids may no
// longer reflect the live document set, per spec.md §9's first Open
// Question: deletions do not rebuild pyramids inline, so callers must
// rerun RebuildPositionLevels / RebuildFacetLevels before a proximity or
// range query next relies on them.
func (idx *Index) markPyramidsStale(tx *kvstore.Tx) error {
	return tx.Bucket(bucketMain).Put([]byte(keyStalePyramids), []byte{1})
}

func (idx *Index) clearPyramidsStale(tx *kvstore.Tx) error {
	return tx.Bucket(bucketMain).Put([]byte(keyStalePyramids), []byte{0})
}

// PyramidsStale reports whether a deletion has marked the pyramids stale
// since RebuildPositionLevels last ran. RebuildFacetLevels and
// RebuildFacetStringLevels leave the flag unchanged.
func (idx *Index) PyramidsStale(tx *kvstore.Tx) bool {
	v := tx.Bucket(bucketMain).Get([]byte(keyStalePyramids))
	return len(v) == 1 && v[0] == 1
}

// SetFilterableFields persists the set of field names eligible for facet
// filtering, the "settings update (filterable fields)" CLI operation of
// spec.md §6.
func (idx *Index) SetFilterableFields(tx *kvstore.Tx, names []string) error {
	return tx.Bucket(bucketMain).Put([]byte(keyFilterableFields), encodeStringList(names))
}

// FilterableFields returns the persisted set of filterable field names.
func (idx *Index) FilterableFields(tx *kvstore.Tx) []string {
	raw := tx.Bucket(bucketMain).Get([]byte(keyFilterableFields))
	if raw == nil {
		return nil
	}
	return decodeStringList(raw)
}

// LiveDocs returns the current live-DocID posting set, the candidate
// universe pkg/query.Engine.Search starts every query from.
func (idx *Index) LiveDocs(tx *kvstore.Tx) (*postings.Set, error) {
	return idx.liveDocs(tx)
}

// FieldDict returns the persisted index-scoped field dictionary.
func (idx *Index) FieldDict(tx *kvstore.Tx) (*fielddict.Dict, error) {
	return idx.fieldDict(tx)
}

// WordsFST returns the persisted words FST, consulted by
// pkg/query.TermCriterion to validate a query term exists before reading
// its postings.
func (idx *Index) WordsFST(tx *kvstore.Tx) (*fst.Set, error) {
	return idx.wordsFST(tx)
}

// PrefixesFST returns the persisted prefixes FST, consulted by
// pkg/query.PrefixCriterion.
func (idx *Index) PrefixesFST(tx *kvstore.Tx) (*fst.Set, error) {
	return idx.prefixesFST(tx)
}

// WordPostings returns the posting set for an exact word.
func (idx *Index) WordPostings(tx *kvstore.Tx, word []byte) (*postings.Set, error) {
	return idx.readPostingBucket(tx, bucketWordDocids, word)
}

// PrefixPostings returns the posting set for a prefix.
func (idx *Index) PrefixPostings(tx *kvstore.Tx, prefix []byte) (*postings.Set, error) {
	return idx.readPostingBucket(tx, bucketPrefixDocids, prefix)
}

// WordPairProximity returns the posting set of documents where word1 is
// followed by word2 exactly distance token positions later.
func (idx *Index) WordPairProximity(tx *kvstore.Tx, word1, word2 []byte, distance uint8) (*postings.Set, error) {
	return idx.readPostingBucket(tx, bucketWordPairProximity, wordPairKey(word1, word2, distance))
}

// WordLevelPostings returns the posting set stored at exactly
// (word, level, left, right) of the positional level pyramid, the
// precomputed lookup pkg/query's proximity support sweeps across ranges
// with instead of rescanning doc_word_positions.
func (idx *Index) WordLevelPostings(tx *kvstore.Tx, word []byte, level uint8, left, right uint32) (*postings.Set, error) {
	return idx.readPostingBucket(tx, bucketWordLevelPositions, wordLevelKey(word, level, left, right))
}

// GetDocument returns the stored document for docID, decoded back into a
// docvalue.Value, for callers (the CLI's search command) that need to
// render hits rather than merely rank them.
func (idx *Index) GetDocument(tx *kvstore.Tx, docID uint32) (docvalue.Value, bool, error) {
	raw := tx.Bucket(bucketDocuments).Get(docKey(docID))
	if raw == nil {
		return docvalue.Value{}, false, nil
	}
	entries, err := decodeRecord(raw)
	if err != nil {
		return docvalue.Value{}, false, err
	}
	dict, err := idx.fieldDict(tx)
	if err != nil {
		return docvalue.Value{}, false, err
	}
	v, err := recordToValue(dict, entries)
	if err != nil {
		return docvalue.Value{}, false, err
	}
	return v, true, nil
}

func (idx *Index) readPostingBucket(tx *kvstore.Tx, bucket string, key []byte) (*postings.Set, error) {
	raw := tx.Bucket(bucket).Get(key)
	if raw == nil {
		return postings.New(), nil
	}
	return postings.FromBytes(raw)
}

// nextDocID allocates and persists the next fresh DocID, for callers that
// want the index to autogenerate identifiers on add.
func (idx *Index) nextDocID(tx *kvstore.Tx) (uint32, error) {
	b := tx.Bucket(bucketMain)
	raw := b.Get([]byte(keyNextDocID))
	var next uint32
	if raw != nil {
		next = decodeDocKey(raw)
	}
	if err := b.Put([]byte(keyNextDocID), docKey(next+1)); err != nil {
		return 0, err
	}
	return next, nil
}

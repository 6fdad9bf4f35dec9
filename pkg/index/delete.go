package index

import (
	"bytes"
	"sort"

	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/fst"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/postings"
)

// DeletionBatch accumulates the set of documents to remove, built
// incrementally via Delete/DeleteMany/DeleteExternal (spec.md §4.3
// "Inputs"). External IDs are resolved against the persisted external-ID
// map when the batch is executed.
type DeletionBatch struct {
	ids         *postings.Set
	externalIDs []string
}

// NewDeletionBatch returns an empty DeletionBatch.
func (idx *Index) NewDeletionBatch() *DeletionBatch {
	return &DeletionBatch{ids: postings.New()}
}

// Delete adds a single DocID to the batch.
func (b *DeletionBatch) Delete(docID uint32) { b.ids.Add(docID) }

// DeleteMany adds every DocID in bitmap to the batch.
func (b *DeletionBatch) DeleteMany(bitmap *postings.Set) {
	b.ids = b.ids.Union(bitmap)
}

// DeleteExternal queues an external ID for resolution (to a DocID) at
// execution time. Unknown external IDs are silently skipped, matching
// spec.md §4.3's "returning it or None if unknown" semantics for a single
// lookup rather than erroring the whole batch.
func (b *DeletionBatch) DeleteExternal(id string) {
	b.externalIDs = append(b.externalIDs, id)
}

// ResolveExternal resolves a single external ID to its DocID against the
// index's persisted external-ID map, without mutating anything.
func (idx *Index) ResolveExternal(tx *kvstore.Tx, id string) (uint32, bool, error) {
	m, err := idx.externalIDs(tx)
	if err != nil {
		return 0, false, err
	}
	v, ok := m.Get([]byte(id))
	return uint32(v), ok, nil
}

// DeleteDocuments removes every document named by batch from all secondary
// indexes within tx, in one transaction, following the 15-step algorithm
// of spec.md §4.3 exactly. Returns the number of DocIDs in the resolved
// batch (DocIDs that were not live are counted too), or 0 when the index
// has no live documents or no primary-key field. It does not rebuild the positional or facet level pyramids
// (spec.md §9's first Open Question); callers must rerun
// RebuildPositionLevels / RebuildFacetLevels before relying on them again.
func (idx *Index) DeleteDocuments(tx *kvstore.Tx, batch *DeletionBatch) (int, error) {
	D := batch.ids.Clone()
	for _, id := range batch.externalIDs {
		if docID, ok, err := idx.ResolveExternal(tx, id); err != nil {
			return 0, err
		} else if ok {
			D.Add(docID)
		}
	}

	// Step 1: stamp updated_at.
	if err := idx.stampUpdatedAt(tx); err != nil {
		return 0, err
	}

	// Step 2: load live set; empty means nothing to do.
	L, err := idx.liveDocs(tx)
	if err != nil {
		return 0, err
	}
	if L.IsEmpty() {
		return 0, nil
	}

	// Step 3: L' = L \ D, write back.
	Lp := L.Difference(D)
	if err := idx.saveLiveDocs(tx, Lp); err != nil {
		return 0, err
	}

	// Step 4: bulk-clear delegation.
	if D.Len() == L.Len() {
		n := D.Len()
		if err := idx.clearAll(tx); err != nil {
			return 0, err
		}
		return n, nil
	}

	if D.IsEmpty() {
		return 0, nil
	}

	// Step 5: resolve primary-key FID.
	pkName, ok := idx.primaryKeyField(tx)
	if !ok {
		return 0, nil
	}
	dict, err := idx.fieldDict(tx)
	if err != nil {
		return 0, err
	}
	pkFID, ok := dict.LookupByName(pkName)
	if !ok {
		return 0, nil
	}

	// Step 6: document sweep.
	perFieldDeleted := map[uint16]int{}
	var externalIDsToDelete []string
	wordsTouched := map[string]bool{}

	docsBucket := tx.Bucket(bucketDocuments)
	docsCursor := docsBucket.Cursor()
	for _, docID := range D.ToSlice() {
		key := docKey(docID)
		k, v := docsCursor.Seek(key)
		if k != nil && bytes.Equal(k, key) {
			entries, err := decodeRecord(v)
			if err != nil {
				return 0, err
			}
			for _, e := range entries {
				perFieldDeleted[e.fid]++
			}
			if pkRaw, found := fieldValueByFID(entries, pkFID); found {
				var pkVal docvalue.Value
				if err := pkVal.UnmarshalJSON(pkRaw); err != nil {
					return 0, err
				}
				extID, err := docvalue.NormalizePrimaryKey(pkVal)
				if err != nil {
					return 0, err
				}
				externalIDsToDelete = append(externalIDsToDelete, extID)
			}
			if err := docsCursor.DeleteCurrent(); err != nil {
				return 0, err
			}
		}

		posBucket := tx.Bucket(bucketDocWordPositions)
		posCursor := posBucket.Cursor()
		prefix := docKey(docID)
		for pk, _ := posCursor.Seek(prefix); posCursor.Valid() && bytes.HasPrefix(pk, prefix); pk, _ = posCursor.Next() {
			_, word := splitDocWordKey(pk)
			wordsTouched[string(word)] = false
			if err := posCursor.DeleteCurrent(); err != nil {
				return 0, err
			}
		}
	}

	// Step 7: field distribution update.
	dist, err := idx.fieldDistribution(tx)
	if err != nil {
		return 0, err
	}
	for fid, n := range perFieldDeleted {
		name, ok := dict.LookupByFID(fid)
		if !ok {
			continue
		}
		dist[name] -= uint64(n)
		if dist[name] <= 0 {
			delete(dist, name)
		}
	}
	if err := idx.saveFieldDistribution(tx, dist); err != nil {
		return 0, err
	}

	// Step 8: external ID map.
	sort.Strings(externalIDsToDelete)
	if err := idx.subtractExternalIDs(tx, externalIDsToDelete); err != nil {
		return 0, err
	}

	// Step 9: word postings.
	words := make([]string, 0, len(wordsTouched))
	for w := range wordsTouched {
		words = append(words, w)
	}
	sort.Strings(words)
	wordBucket := tx.Bucket(bucketWordDocids)
	for _, w := range words {
		wordCursor := wordBucket.Cursor()
		k, v := wordCursor.Seek([]byte(w))
		if k == nil || !bytes.Equal(k, []byte(w)) {
			continue
		}
		set, err := postings.FromBytes(v)
		if err != nil {
			return 0, err
		}
		newSet := set.Difference(D)
		if newSet.IsEmpty() {
			if err := wordCursor.DeleteCurrent(); err != nil {
				return 0, err
			}
			wordsTouched[w] = true
		} else if newSet.Len() != set.Len() {
			raw, err := newSet.ToBytes()
			if err != nil {
				return 0, err
			}
			if err := wordCursor.PutCurrent(raw); err != nil {
				return 0, err
			}
		}
	}

	// Step 10: words FST.
	var emptiedWords [][]byte
	for w, emptied := range wordsTouched {
		if emptied {
			emptiedWords = append(emptiedWords, []byte(w))
		}
	}
	if len(emptiedWords) > 0 {
		toDeleteFST, err := fst.Build(emptiedWords)
		if err != nil {
			return 0, err
		}
		wordsFST, err := idx.wordsFST(tx)
		if err != nil {
			return 0, err
		}
		newWordsFST, err := fst.Difference(wordsFST, toDeleteFST)
		if err != nil {
			return 0, err
		}
		if err := idx.saveFST(tx, keyWordsFST, newWordsFST); err != nil {
			return 0, err
		}
	}

	// Step 11: prefix postings and prefixes FST.
	emptiedPrefixes, err := idx.subtractPostingBucketAll(tx, bucketPrefixDocids, D)
	if err != nil {
		return 0, err
	}
	if len(emptiedPrefixes) > 0 {
		emptiedFST, err := fst.Build(emptiedPrefixes)
		if err != nil {
			return 0, err
		}
		prefixesFST, err := idx.prefixesFST(tx)
		if err != nil {
			return 0, err
		}
		newPrefixesFST, err := fst.Difference(prefixesFST, emptiedFST)
		if err != nil {
			return 0, err
		}
		if err := idx.saveFST(tx, keyPrefixesFST, newPrefixesFST); err != nil {
			return 0, err
		}
	}

	// Step 12: pairwise and positional postings.
	for _, bucket := range []string{
		bucketPrefixWordProximity,
		bucketWordPairProximity,
		bucketWordLevelPositions,
		bucketPrefixLevelPositions,
		bucketFieldWordCount,
	} {
		if _, err := idx.subtractPostingBucketAll(tx, bucket, D); err != nil {
			return 0, err
		}
	}

	// Step 13: facet value maps, level-zero and group levels alike, for
	// both numeric and string fields (spec.md §4.3 step 13, §4.4's "level
	// pyramids analogous to the positional one" applied to facets). Milli's
	// remove_docids_from_facet_field_id_string_docids discriminates
	// level-zero from group-level entries by trying to decode each key as
	// a group key first, because both tiers share one physical table; this
	// engine keeps them in separate buckets (bucketFacetF64Levels,
	// bucketFacetStringLevels) the same way bucketWordLevelPositions is
	// kept apart from level 0, so the equivalent discrimination is simply
	// which bucket is being walked.
	for _, bucket := range []string{
		bucketFacetF64,
		bucketFacetString,
		bucketFacetF64Levels,
		bucketFacetStringLevels,
	} {
		if _, err := idx.subtractPostingBucketAll(tx, bucket, D); err != nil {
			return 0, err
		}
	}

	// Step 14: per-field facet bitmaps and per-(field,doc,value) indexes.
	if err := idx.deleteFacetedFieldEntries(tx, D); err != nil {
		return 0, err
	}

	// Geo-tagged bitmap and per-document points, SPEC_FULL.md §4.6's
	// addition to the deletion pipeline.
	if err := idx.deleteGeoPoints(tx, D); err != nil {
		return 0, err
	}

	if err := idx.markPyramidsStale(tx); err != nil {
		return 0, err
	}

	return D.Len(), nil
}

func fieldValueByFID(entries []fieldEntry, fid uint16) ([]byte, bool) {
	for _, e := range entries {
		if e.fid == fid {
			return e.value, true
		}
	}
	return nil, false
}

// subtractExternalIDs removes externalIDsToDelete from the persisted
// external-ID map (spec.md §4.3 step 8).
func (idx *Index) subtractExternalIDs(tx *kvstore.Tx, toDelete []string) error {
	if len(toDelete) == 0 {
		return nil
	}
	m, err := idx.externalIDs(tx)
	if err != nil {
		return err
	}
	pairs, err := m.Pairs()
	if err != nil {
		return err
	}
	for _, id := range toDelete {
		delete(pairs, id)
	}
	newMap, err := fst.BuildMap(pairs)
	if err != nil {
		return err
	}
	return idx.saveExternalIDs(tx, newMap)
}

// subtractPostingBucketAll walks every entry of bucket, subtracting D from
// each posting value, deleting entries that become empty, and overwriting
// those that merely change. Returns the keys that became empty.
func (idx *Index) subtractPostingBucketAll(tx *kvstore.Tx, bucket string, D *postings.Set) ([][]byte, error) {
	b := tx.Bucket(bucket)
	c := b.Cursor()
	var emptied [][]byte
	for k, v := c.First(); c.Valid(); k, v = c.Next() {
		set, err := postings.FromBytes(v)
		if err != nil {
			return nil, err
		}
		newSet := set.Difference(D)
		if newSet.IsEmpty() {
			empty := make([]byte, len(k))
			copy(empty, k)
			emptied = append(emptied, empty)
			if err := c.DeleteCurrent(); err != nil {
				return nil, err
			}
		} else if newSet.Len() != set.Len() {
			raw, err := newSet.ToBytes()
			if err != nil {
				return nil, err
			}
			if err := c.PutCurrent(raw); err != nil {
				return nil, err
			}
		}
	}
	return emptied, nil
}

// deleteFacetedFieldEntries subtracts D from each faceted field's DocID
// bitmaps and deletes every per-(field,doc,value) entry whose DocID is in
// D (spec.md §4.3 step 14).
func (idx *Index) deleteFacetedFieldEntries(tx *kvstore.Tx, D *postings.Set) error {
	if _, err := idx.subtractPostingBucketAll(tx, bucketFieldFacetBitmapF64, D); err != nil {
		return err
	}
	if _, err := idx.subtractPostingBucketAll(tx, bucketFieldFacetBitmapString, D); err != nil {
		return err
	}

	for _, bucket := range []string{bucketFieldDocFacetF64, bucketFieldDocFacetString} {
		b := tx.Bucket(bucket)
		c := b.Cursor()
		for k, _ := c.First(); c.Valid(); k, _ = c.Next() {
			_, docID := splitFieldDocKey(k)
			if D.Contains(docID) {
				if err := c.DeleteCurrent(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// deleteGeoPoints removes D from the geo-tagged bitmap and drops each
// deleted document's stored point.
func (idx *Index) deleteGeoPoints(tx *kvstore.Tx, D *postings.Set) error {
	bitmap, err := idx.geoDocids(tx)
	if err != nil {
		return err
	}
	bitmap = bitmap.Difference(D)
	if err := idx.saveGeoDocids(tx, bitmap); err != nil {
		return err
	}
	m := tx.Bucket(bucketMain)
	for _, docID := range D.ToSlice() {
		if err := m.Delete(geoPointKey(docID)); err != nil {
			return err
		}
	}
	return nil
}

// clearAll implements the bulk-clear delegation of spec.md §4.3 step 4:
// every secondary index is emptied, leaving the index indistinguishable
// from a freshly cleared one. Index-scoped schema (the field dictionary,
// primary-key field name, filterable fields, next-DocID counter) is not
// document data and survives, so a subsequent Add continues to allocate
// fresh, never-reused DocIDs.
func (idx *Index) clearAll(tx *kvstore.Tx) error {
	for _, name := range allBuckets {
		if name == bucketMain {
			continue
		}
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}

	m := tx.Bucket(bucketMain)
	for _, key := range []string{keyLiveDocs, keyFieldDistribution, keyWordsFST, keyPrefixesFST, keyExternalIDs, keyGeoDocids} {
		if err := m.Delete([]byte(key)); err != nil {
			return err
		}
	}

	c := m.Cursor()
	prefix := []byte(geoPointKeyPrefix)
	for k, _ := c.Seek(prefix); c.Valid() && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if err := c.DeleteCurrent(); err != nil {
			return err
		}
	}
	return nil
}

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/tokenize"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func docObj(fields map[string]docvalue.Value) docvalue.Value {
	return docvalue.Object(fields)
}

func TestAddDocuments_SingleMappingGetsOneDocID(t *testing.T) {
	// Given: an empty index
	idx := openTestIndex(t)

	// When: adding a single document mapping
	var ids []uint32
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		var err error
		ids, err = idx.AddDocuments(tx, docObj(map[string]docvalue.Value{
			"id":    docvalue.Number(1),
			"title": docvalue.String("hello world"),
		}), AddOptions{PrimaryKeyField: "id"})
		return err
	})
	require.NoError(t, err)

	// Then: exactly one DocID is assigned, and live docs contains it
	require.Len(t, ids, 1)
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		live, err := idx.liveDocs(tx)
		require.NoError(t, err)
		assert.True(t, live.Contains(ids[0]))
		return nil
	})
	require.NoError(t, err)
}

func TestAddDocuments_SequenceOfMappingsGetsSequentialDocIDs(t *testing.T) {
	// Given: an empty index
	idx := openTestIndex(t)

	// When: adding a sequence of three mappings
	var ids []uint32
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		var err error
		ids, err = idx.AddDocuments(tx, docvalue.Array([]docvalue.Value{
			docObj(map[string]docvalue.Value{"id": docvalue.Number(0), "title": docvalue.String("a")}),
			docObj(map[string]docvalue.Value{"id": docvalue.Number(1), "title": docvalue.String("b")}),
			docObj(map[string]docvalue.Value{"id": docvalue.Number(2), "title": docvalue.String("c")}),
		}), AddOptions{PrimaryKeyField: "id"})
		return err
	})
	require.NoError(t, err)

	// Then: three distinct, ascending DocIDs are returned
	require.Len(t, ids, 3)
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
}

func TestAddDocuments_RejectsNonMappingTopLevelValue(t *testing.T) {
	// Given: an empty index
	idx := openTestIndex(t)

	// When: adding a bare string as the document payload
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		_, err := idx.AddDocuments(tx, docvalue.String("nope"), AddOptions{})
		return err
	})

	// Then: it is rejected
	require.Error(t, err)
}

func TestAddDocuments_PopulatesFieldDistribution(t *testing.T) {
	// Given: an empty index
	idx := openTestIndex(t)

	// When: adding two documents sharing a field and one with an extra field
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		_, err := idx.AddDocuments(tx, docvalue.Array([]docvalue.Value{
			docObj(map[string]docvalue.Value{"id": docvalue.Number(0), "title": docvalue.String("a")}),
			docObj(map[string]docvalue.Value{"id": docvalue.Number(1), "title": docvalue.String("b"), "body": docvalue.String("c")}),
		}), AddOptions{PrimaryKeyField: "id"})
		return err
	})
	require.NoError(t, err)

	// Then: field_distribution reflects per-field document counts
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		dist, err := idx.fieldDistribution(tx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), dist["id"])
		assert.Equal(t, uint64(2), dist["title"])
		assert.Equal(t, uint64(1), dist["body"])
		return nil
	})
	require.NoError(t, err)
}

func TestAddDocuments_TokenizesTextFieldsIntoWordPostings(t *testing.T) {
	// Given: an index with a code tokenizer configured
	idx := openTestIndex(t)
	tok := tokenize.NewCode()

	// When: adding a document with a snake_case term in its title
	var docID uint32
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		ids, err := idx.AddDocuments(tx, docObj(map[string]docvalue.Value{
			"id":    docvalue.Number(1),
			"title": docvalue.String("user_login flow"),
		}), AddOptions{PrimaryKeyField: "id", Tokenizer: tok})
		if err != nil {
			return err
		}
		docID = ids[0]
		return nil
	})
	require.NoError(t, err)

	// Then: the split subterms appear in the word postings and FST
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		b := tx.Bucket(bucketWordDocids)
		raw := b.Get([]byte("user"))
		require.NotNil(t, raw)

		wordsFST, err := idx.wordsFST(tx)
		require.NoError(t, err)
		assert.True(t, wordsFST.Contains([]byte("login")))
		assert.True(t, wordsFST.Contains([]byte("flow")))
		return nil
	})
	require.NoError(t, err)
	_ = docID
}

func TestAddDocuments_ResolvesPrimaryKeyToExternalIDMap(t *testing.T) {
	// Given: an empty index with a primary key field
	idx := openTestIndex(t)

	// When: adding a document with a numeric primary key
	var docID uint32
	err := idx.Store().Update(func(tx *kvstore.Tx) error {
		ids, err := idx.AddDocuments(tx, docObj(map[string]docvalue.Value{
			"id":    docvalue.Number(42),
			"title": docvalue.String("x"),
		}), AddOptions{PrimaryKeyField: "id"})
		if err != nil {
			return err
		}
		docID = ids[0]
		return nil
	})
	require.NoError(t, err)

	// Then: the external ID "42" resolves back to the assigned DocID
	err = idx.Store().View(func(tx *kvstore.Tx) error {
		resolved, ok, err := idx.ResolveExternal(tx, "42")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, docID, resolved)
		return nil
	})
	require.NoError(t, err)
}

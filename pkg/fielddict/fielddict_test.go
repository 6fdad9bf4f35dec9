package fielddict

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_IsIdempotent(t *testing.T) {
	d := New()

	fid1 := d.Insert("title")
	fid2 := d.Insert("title")

	assert.Equal(t, fid1, fid2)
	assert.Equal(t, 1, d.Len())
}

func TestInsert_AssignsDistinctFIDs(t *testing.T) {
	d := New()

	titleFID := d.Insert("title")
	bodyFID := d.Insert("body")

	assert.NotEqual(t, titleFID, bodyFID)
}

func TestLookup_ByNameAndByFID(t *testing.T) {
	d := New()
	fid := d.Insert("title")

	gotFID, ok := d.LookupByName("title")
	require.True(t, ok)
	assert.Equal(t, fid, gotFID)

	gotName, ok := d.LookupByFID(fid)
	require.True(t, ok)
	assert.Equal(t, "title", gotName)

	_, ok = d.LookupByName("missing")
	assert.False(t, ok)
}

func TestEncodeDecode_RoundTrips(t *testing.T) {
	d := New()
	d.Insert("title")
	d.Insert("body")
	d.Insert("author")

	var buf bytes.Buffer
	require.NoError(t, d.Encode(&buf))

	decoded, err := Decode(&buf, d.Len())
	require.NoError(t, err)

	assert.Equal(t, d.Len(), decoded.Len())
	for _, name := range []string{"title", "body", "author"} {
		fid, ok := d.LookupByName(name)
		require.True(t, ok)
		decodedName, ok := decoded.LookupByFID(fid)
		require.True(t, ok)
		assert.Equal(t, name, decodedName)
	}
}

func TestDecode_RejectsDuplicateNameRebind(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 5})
	buf.WriteString("title")
	buf.Write([]byte{0, 1, 0, 5})
	buf.WriteString("title")

	_, err := Decode(&buf, 2)
	assert.Error(t, err)
}

func TestNames_ReturnsAllInsertedFields(t *testing.T) {
	d := New()
	d.Insert("a")
	d.Insert("b")

	assert.ElementsMatch(t, []string{"a", "b"}, d.Names())
}

// Package index implements the engine's core: the host index wrapping
// pkg/kvstore, the document sweep, the deletion pipeline (spec.md §4.3),
// the positional level builder (spec.md §4.4), and the facet/geo
// supplements of SPEC_FULL.md §4.5-§4.6.
package index

import (
	"encoding/binary"

	"github.com/cerplabs/ferrex/pkg/fielddict"
)

// Bucket names, one per secondary index named in spec.md §3.
const (
	bucketMain                   = "main"
	bucketDocuments              = "documents"
	bucketWordDocids             = "word_docids"
	bucketPrefixDocids           = "prefix_docids"
	bucketDocWordPositions       = "doc_word_positions"
	bucketWordLevelPositions     = "word_level_positions"
	bucketPrefixLevelPositions   = "prefix_level_positions"
	bucketWordPairProximity      = "word_pair_proximity"
	bucketPrefixWordProximity    = "prefix_word_proximity"
	bucketFieldWordCount         = "field_word_count"
	bucketFacetF64               = "facet_f64"
	bucketFacetString            = "facet_string"
	bucketFieldDocFacetF64       = "field_doc_facet_f64"
	bucketFieldDocFacetString    = "field_doc_facet_string"
	bucketFieldFacetBitmapF64    = "field_facet_bitmap_f64"
	bucketFieldFacetBitmapString = "field_facet_bitmap_string"
	bucketFacetF64Levels         = "facet_f64_levels"
	bucketFacetStringLevels      = "facet_string_levels"
)

// Main-bucket singleton keys.
const (
	keyFields            = "fields"
	keyLiveDocs          = "live_docs"
	keyUpdatedAt         = "updated_at"
	keyPrimaryKeyField   = "primary_key_field"
	keyFieldDistribution = "field_distribution"
	keyWordsFST          = "words_fst"
	keyPrefixesFST       = "prefixes_fst"
	keyExternalIDs       = "external_ids"
	keyGeoDocids         = "geo_docids"
	keyStalePyramids     = "stale_pyramids"
	keyNextDocID         = "next_docid"
	keyFilterableFields  = "filterable_fields"
)

// docKey encodes a DocID as a 4-byte big-endian key, so byte-lexicographic
// bbolt ordering equals numeric ordering (SPEC_FULL.md §3).
func docKey(docID uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], docID)
	return b[:]
}

func decodeDocKey(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// docWordKey encodes the (doc, word) composite key used by the
// doc_word_positions table: docID (4 bytes BE) followed by the word bytes,
// so a prefix cursor at docKey(docID) enumerates exactly that document's
// words (spec.md §4.3 step 6).
func docWordKey(docID uint32, word []byte) []byte {
	out := make([]byte, 4+len(word))
	binary.BigEndian.PutUint32(out[0:4], docID)
	copy(out[4:], word)
	return out
}

func splitDocWordKey(key []byte) (uint32, []byte) {
	return binary.BigEndian.Uint32(key[0:4]), key[4:]
}

// fidKey encodes an FID as a 2-byte big-endian key.
func fidKey(fid fielddict.FID) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], fid)
	return b[:]
}

// fieldDocKey encodes the (fid, docID) composite key used by the per-
// (field, doc) facet index tables.
func fieldDocKey(fid fielddict.FID, docID uint32) []byte {
	out := make([]byte, 6)
	binary.BigEndian.PutUint16(out[0:2], fid)
	binary.BigEndian.PutUint32(out[2:6], docID)
	return out
}

func splitFieldDocKey(key []byte) (fielddict.FID, uint32) {
	return fielddict.FID(binary.BigEndian.Uint16(key[0:2])), binary.BigEndian.Uint32(key[2:6])
}

// levelKeySuffix encodes the (level, left, right) suffix shared by the
// positional and facet level pyramids: level (1 byte) + left (4 bytes BE)
// + right (4 bytes BE), appended after a word/prefix/field prefix.
func levelKeySuffix(level uint8, left, right uint32) []byte {
	out := make([]byte, 9)
	out[0] = level
	binary.BigEndian.PutUint32(out[1:5], left)
	binary.BigEndian.PutUint32(out[5:9], right)
	return out
}

func wordLevelKey(word []byte, level uint8, left, right uint32) []byte {
	out := make([]byte, 0, len(word)+1+9)
	out = append(out, word...)
	out = append(out, 0x00)
	out = append(out, levelKeySuffix(level, left, right)...)
	return out
}

// splitWordLevelKey separates the word prefix from the trailing
// (level, left, right) suffix, using the 0x00 separator byte (word text
// never contains NUL after tokenization).
func splitWordLevelKey(key []byte) (word []byte, level uint8, left, right uint32) {
	sep := len(key) - 9 - 1
	word = key[:sep]
	suffix := key[sep+1:]
	level = suffix[0]
	left = binary.BigEndian.Uint32(suffix[1:5])
	right = binary.BigEndian.Uint32(suffix[5:9])
	return
}

// wordPairKey encodes (word1, word2, distance) for the word-pair proximity
// table.
func wordPairKey(word1, word2 []byte, distance uint8) []byte {
	out := make([]byte, 0, len(word1)+1+len(word2)+1+1)
	out = append(out, word1...)
	out = append(out, 0x00)
	out = append(out, word2...)
	out = append(out, 0x00)
	out = append(out, distance)
	return out
}

// fieldWordCountKey encodes (fid, word-count) for the field word-count
// histogram.
func fieldWordCountKey(fid fielddict.FID, count uint32) []byte {
	out := make([]byte, 6)
	binary.BigEndian.PutUint16(out[0:2], fid)
	binary.BigEndian.PutUint32(out[2:6], count)
	return out
}

package query

import "math"

// idfScore is the standard BM25 inverse-document-frequency shape
// (log(1 + (N-df+0.5)/(df+0.5))): rarer terms score higher, without the
// term-frequency/length normalization a full BM25 implementation adds.
func idfScore(totalDocs, docFreq int) float64 {
	if docFreq <= 0 || totalDocs <= 0 {
		return 0
	}
	return math.Log(1 + (float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
}

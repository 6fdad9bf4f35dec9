package docvalue

import (
	"strconv"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// NormalizePrimaryKey converts a primary-key Value to its canonical short
// string form: strings pass through unchanged, numbers are rendered via
// their decimal representation (spec.md §4.3 step 6b). Any other kind
// fails with InvalidDocumentID instead of panicking (spec.md §9's second
// Open Question).
func NormalizePrimaryKey(v Value) (string, error) {
	switch v.Kind() {
	case KindString:
		return v.AsString(), nil
	case KindNumber:
		return strconv.FormatFloat(v.AsNumber(), 'f', -1, 64), nil
	default:
		return "", ferrexerr.InvalidDocumentID(
			"primary key value must be a string or number", nil)
	}
}

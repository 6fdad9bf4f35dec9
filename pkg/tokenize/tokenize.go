// Package tokenize provides the engine's tokenizer binding: the consumed
// contract of spec.md §6 ("the actual tokenizer... treated as an external
// interface"), plus a concrete code-aware default adapted from the
// teacher's Bleve-embedded tokenizer.
package tokenize

import (
	"regexp"
	"strings"
	"unicode"
)

// Token is a single emitted term and its 1-based position within a
// document's text, the shape level-0 positional postings are built from
// (spec.md §4.4).
type Token struct {
	Term     string
	Position int
}

// Tokenizer is the consumed contract: split text into (term, position)
// pairs.
type Tokenizer interface {
	Tokenize(text string) []Token
}

var identifierRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Code is the engine's default tokenizer: code-aware splitting on
// camelCase/PascalCase/snake_case boundaries, lowercased, short-token and
// stop-word filtered. Adapted from the teacher's bleveCodeTokenizer /
// bleveCodeStopFilter (internal/store/bm25.go), reshaped to emit
// (term, position) pairs directly instead of an analysis.TokenStream
// consumed internally by Bleve.
type Code struct {
	StopWords      map[string]struct{}
	MinTokenLength int
}

// NewCode returns a Code tokenizer with the engine's default stop-word list
// and minimum token length.
func NewCode() *Code {
	return &Code{
		StopWords:      BuildStopWordMap(DefaultStopWords),
		MinTokenLength: 2,
	}
}

// Tokenize implements Tokenizer.
func (c *Code) Tokenize(text string) []Token {
	raw := identifierRegex.FindAllString(text, -1)

	var out []Token
	pos := 1
	for _, word := range raw {
		for _, sub := range splitCodeToken(word) {
			lower := strings.ToLower(sub)
			if len(lower) < c.MinTokenLength {
				continue
			}
			if _, isStop := c.StopWords[lower]; isStop {
				continue
			}
			out = append(out, Token{Term: lower, Position: pos})
			pos++
		}
	}
	return out
}

// splitCodeToken splits snake_case first, then camelCase/PascalCase within
// each underscore-delimited part.
func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase and PascalCase identifiers, treating runs
// of uppercase letters as acronyms (e.g. "parseHTTPRequest" -> "parse",
// "HTTP", "Request").
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// BuildStopWordMap converts a stop-word slice into a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// DefaultStopWords are common programming keywords filtered out of the
// indexed term stream.
var DefaultStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

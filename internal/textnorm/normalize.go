// Package textnorm canonicalizes text for accent- and case-insensitive search.
//
// Normalization lowercases, decomposes (NFD), strips combining marks (Mn),
// collapses whitespace runs to a single space and trims the ends. Every byte
// of the normalized form keeps a pointer back into the original string so
// matches found on the normalized text can be highlighted on the original.
package textnorm

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldPool holds accent-stripping transformers. A transform.Chain carries
// internal buffers and must not be shared between goroutines.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

// mapped is a normalized string plus, for every byte of it, the byte span
// of the original text that produced it.
type mapped struct {
	text   string
	starts []int
	ends   []int
}

// Normalize returns the canonical comparison form of s.
//
//	Normalize("  García   Pérez ") == "garcia perez"
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	if isSimpleASCII(s) {
		return s
	}
	return normalize(s, false).text
}

// NormalizeValue normalizes a dynamically typed value. Only strings produce
// output; nil and every other type normalize to "".
func NormalizeValue(v any) string {
	switch s := v.(type) {
	case string:
		return Normalize(s)
	case *string:
		if s == nil {
			return ""
		}
		return Normalize(*s)
	default:
		return ""
	}
}

// isSimpleASCII reports whether s is already normalized: lowercase ASCII
// with single interior spaces and no other whitespace.
func isSimpleASCII(s string) bool {
	prevSpace := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= utf8.RuneSelf:
			return false
		case c >= 'A' && c <= 'Z':
			return false
		case c == ' ':
			if prevSpace {
				return false
			}
			prevSpace = true
		case c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r':
			return false
		default:
			prevSpace = false
		}
	}
	return !prevSpace
}

// normalize builds the normalized form rune by rune. When withIndex is
// false the offset tables are not allocated.
func normalize(s string, withIndex bool) mapped {
	var (
		b        strings.Builder
		starts   []int
		ends     []int
		fold     transform.Transformer
		spaceAt  = -1 // start of a pending whitespace run
		spaceEnd int
	)
	b.Grow(len(s))
	if withIndex {
		starts = make([]int, 0, len(s))
		ends = make([]int, 0, len(s))
	}

	emit := func(piece string, start, end int) {
		b.WriteString(piece)
		if withIndex {
			for range len(piece) {
				starts = append(starts, start)
				ends = append(ends, end)
			}
		}
	}

	for i, r := range s {
		_, size := utf8.DecodeRuneInString(s[i:])
		end := i + size

		if unicode.IsSpace(r) {
			if spaceAt < 0 {
				spaceAt = i
			}
			spaceEnd = end
			continue
		}

		var piece string
		if r < utf8.RuneSelf {
			c := byte(r)
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			piece = string(rune(c))
		} else {
			if fold == nil {
				fold = foldPool.Get().(transform.Transformer)
			}
			out, _, err := transform.String(fold, string(unicode.ToLower(r)))
			if err != nil {
				out = string(unicode.ToLower(r))
			}
			piece = out
		}

		if piece == "" {
			// A stripped mark belongs to the character before it.
			if withIndex && len(ends) > 0 && spaceAt < 0 {
				last := ends[len(ends)-1]
				for j := len(ends) - 1; j >= 0 && ends[j] == last; j-- {
					ends[j] = end
				}
			}
			continue
		}

		if spaceAt >= 0 {
			if b.Len() > 0 {
				emit(" ", spaceAt, spaceEnd)
			}
			spaceAt = -1
		}
		emit(piece, i, end)
	}

	if fold != nil {
		foldPool.Put(fold)
	}
	return mapped{text: b.String(), starts: starts, ends: ends}
}

package textnorm

import "strings"

// Range is a half-open byte range [Start, End) into the original text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Segment is a piece of the original text, flagged when it falls inside a match.
type Segment struct {
	Text  string
	Match bool
}

// Matches reports whether the normalized target contains the normalized
// query. An empty or whitespace-only query matches everything.
func Matches(query, target string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	return strings.Contains(Normalize(target), q)
}

// HighlightRanges locates every non-overlapping occurrence of query in text,
// comparing normalized forms, and returns the matching spans of the original
// text in order. An empty query or no match returns nil.
func HighlightRanges(text, query string) []Range {
	q := Normalize(query)
	if q == "" || text == "" {
		return nil
	}

	m := normalize(text, true)
	var ranges []Range
	for off := 0; off <= len(m.text)-len(q); {
		idx := strings.Index(m.text[off:], q)
		if idx < 0 {
			break
		}
		start := off + idx
		end := start + len(q)
		ranges = append(ranges, Range{Start: m.starts[start], End: m.ends[end-1]})
		off = end
	}
	return ranges
}

// Split cuts text into alternating plain and matched segments using ranges
// as returned by HighlightRanges. Out-of-bounds or overlapping ranges are
// clipped.
func Split(text string, ranges []Range) []Segment {
	if len(ranges) == 0 {
		if text == "" {
			return nil
		}
		return []Segment{{Text: text}}
	}

	segments := make([]Segment, 0, len(ranges)*2+1)
	pos := 0
	for _, r := range ranges {
		start, end := max(r.Start, pos), min(r.End, len(text))
		if start >= end {
			continue
		}
		if start > pos {
			segments = append(segments, Segment{Text: text[pos:start]})
		}
		segments = append(segments, Segment{Text: text[start:end], Match: true})
		pos = end
	}
	if pos < len(text) {
		segments = append(segments, Segment{Text: text[pos:]})
	}
	return segments
}

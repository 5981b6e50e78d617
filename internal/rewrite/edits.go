package rewrite

import "sort"

// Edit replaces one byte range of the source with new text.
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// EditSet accumulates byte-range replacements against one immutable source
// buffer. Edits are kept sorted by start offset and never overlap: a later
// edit touching an already-claimed range is dropped, first writer wins. The
// traversal visits declaration handlers before the generic ones, so the more
// context-aware edit always lands first.
type EditSet struct {
	edits []Edit
}

// NewEditSet creates an empty edit set.
func NewEditSet() *EditSet {
	return &EditSet{}
}

// Add records a replacement of source[start:end). Empty ranges and ranges
// overlapping a recorded edit are rejected.
func (s *EditSet) Add(start, end uint32, text string) {
	if end <= start {
		return
	}
	i := sort.Search(len(s.edits), func(i int) bool { return s.edits[i].Start >= end })
	// Edits are sorted and mutually disjoint, so of everything starting
	// before end only the closest one can reach into [start, end).
	if i > 0 && s.edits[i-1].End > start {
		return
	}
	s.edits = append(s.edits, Edit{})
	copy(s.edits[i+1:], s.edits[i:])
	s.edits[i] = Edit{Start: start, End: end, Text: text}
}

// Len reports the number of recorded edits.
func (s *EditSet) Len() int { return len(s.edits) }

// Apply rewrites the source in one backward pass: edits are applied in
// descending start order so earlier edits never shift later offsets.
func (s *EditSet) Apply(source []byte) []byte {
	if len(s.edits) == 0 {
		return source
	}
	out := make([]byte, len(source))
	copy(out, source)
	for i := len(s.edits) - 1; i >= 0; i-- {
		e := s.edits[i]
		if int(e.End) > len(out) {
			continue
		}
		out = append(out[:e.Start], append([]byte(e.Text), out[e.End:]...)...)
	}
	return out
}

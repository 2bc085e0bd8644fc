// Package interval provides genomic coordinate spans and regions: half-open
// integer intervals on named contigs, plus the sorted-union operations the
// read-access layer builds its coverage filters on.
package interval

import (
	"math"
	"sort"
)

// PosType is the coordinate type used throughout this package.  Alignment
// formats cap contig lengths at 2^31-1, so int32 suffices.
type PosType int32

// PosTypeMax is the largest representable coordinate.
const PosTypeMax = math.MaxInt32

// Span is a half-open [Start, End) coordinate interval on some implied
// contig.  A Span with End <= Start is empty.
type Span struct {
	Start PosType
	End   PosType
}

// Empty returns true if the span covers no bases.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Overlaps returns true if s and t share at least one base.
func (s Span) Overlaps(t Span) bool {
	return s.Start < t.End && t.Start < s.End
}

// Clamp restricts s to [0, limit), returning the intersection.
func (s Span) Clamp(limit PosType) Span {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.End > limit {
		s.End = limit
	}
	return s
}

// Flatten sorts spans by start coordinate and merges every overlapping or
// touching pair, dropping empty spans.  The result is the minimal sorted
// sequence covering the same bases; it aliases the input's backing array.
func Flatten(spans []Span) []Span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
	out := spans[:0]
	for _, s := range spans {
		if s.Empty() {
			continue
		}
		if n := len(out); n > 0 && s.Start <= out[n-1].End {
			if s.End > out[n-1].End {
				out[n-1].End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// searchSpans returns the index of the first span in a whose End exceeds
// pos, or len(a) if there is none.  a must be flattened.
func searchSpans(a []Span, pos PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i].End > pos })
}

// AnyOverlap reports whether at least one span in a overlaps [start, end).
// a must be flattened (sorted, disjoint); the test is then a binary search
// over span ends followed by one boundary comparison.
func AnyOverlap(a []Span, start, end PosType) bool {
	idx := searchSpans(a, start)
	return idx != len(a) && a[idx].Start < end
}

// Subtract removes every base covered by holes from spans, returning the
// remainder.  Both inputs must be flattened; the result is flattened.
func Subtract(spans, holes []Span) []Span {
	if len(holes) == 0 {
		return spans
	}
	var out []Span
	h := 0
	for _, s := range spans {
		cur := s.Start
		for h < len(holes) && holes[h].End <= cur {
			h++
		}
		hi := h
		for hi < len(holes) && holes[hi].Start < s.End {
			if holes[hi].Start > cur {
				out = append(out, Span{cur, holes[hi].Start})
			}
			if holes[hi].End > cur {
				cur = holes[hi].End
			}
			hi++
		}
		if cur < s.End {
			out = append(out, Span{cur, s.End})
		}
	}
	return out
}

// TotalBases returns the number of bases covered by a flattened span list.
func TotalBases(a []Span) int64 {
	var n int64
	for _, s := range a {
		n += int64(s.End - s.Start)
	}
	return n
}

// Package pagerange parses and evaluates 1-based page selections such as "1-3,5".
package pagerange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxPage is the highest page number an expression may name.
const MaxPage = 10000

// ErrEmpty is returned when the expression contains no pages.
var ErrEmpty = errors.New("page range is empty")

// Span is an inclusive run of pages.
type Span struct {
	Start int
	End   int
}

// Range is a normalised set of pages held as sorted, disjoint, non-adjacent spans.
type Range struct {
	spans []Span
}

// Parse converts an expression of comma separated pages or inclusive spans into a Range.
func Parse(expr string) (Range, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Range{}, ErrEmpty
	}
	parts := strings.Split(expr, ",")
	spans := make([]Span, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Range{}, fmt.Errorf("page range %q has an empty segment", expr)
		}
		span, err := parseSegment(part)
		if err != nil {
			return Range{}, err
		}
		spans = append(spans, span)
	}
	return Range{spans: normalize(spans)}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(expr string) Range {
	r, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// Full returns the range covering pages 1..count.
func Full(count int) Range {
	if count <= 0 {
		return Range{}
	}
	return Range{spans: []Span{{Start: 1, End: count}}}
}

func parseSegment(part string) (Span, error) {
	bounds := strings.SplitN(part, "-", 2)
	start, err := parsePage(bounds[0])
	if err != nil {
		return Span{}, err
	}
	if len(bounds) == 1 {
		return Span{Start: start, End: start}, nil
	}
	end, err := parsePage(bounds[1])
	if err != nil {
		return Span{}, err
	}
	if end < start {
		return Span{}, fmt.Errorf("page span %q is reversed", part)
	}
	return Span{Start: start, End: end}, nil
}

func parsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("page numbers start at 1, got %d", n)
	}
	if n > MaxPage {
		return 0, fmt.Errorf("page %d exceeds the maximum of %d", n, MaxPage)
	}
	return n, nil
}

// normalize sorts spans and merges overlapping or adjacent ones.
func normalize(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	out := []Span{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End+1 {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Spans returns a copy of the normalised spans.
func (r Range) Spans() []Span {
	out := make([]Span, len(r.spans))
	copy(out, r.spans)
	return out
}

// Pages expands the range into page numbers in ascending order.
func (r Range) Pages() []int {
	out := make([]int, 0, r.Len())
	for _, s := range r.spans {
		for p := s.Start; p <= s.End; p++ {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of pages in the range.
func (r Range) Len() int {
	n := 0
	for _, s := range r.spans {
		n += s.End - s.Start + 1
	}
	return n
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool {
	return len(r.spans) == 0
}

// Max returns the highest page or zero for an empty range.
func (r Range) Max() int {
	if len(r.spans) == 0 {
		return 0
	}
	return r.spans[len(r.spans)-1].End
}

// Contains reports whether page is selected.
func (r Range) Contains(page int) bool {
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].End >= page })
	return i < len(r.spans) && r.spans[i].Start <= page
}

// Outside returns the part of other that r does not select.
func (r Range) Outside(other Range) Range {
	var missing []Span
	for _, s := range other.spans {
		cur := s.Start
		for _, g := range r.spans {
			if g.End < cur {
				continue
			}
			if g.Start > s.End {
				break
			}
			if g.Start > cur {
				missing = append(missing, Span{Start: cur, End: g.Start - 1})
			}
			cur = g.End + 1
			if cur > s.End {
				break
			}
		}
		if cur <= s.End {
			missing = append(missing, Span{Start: cur, End: s.End})
		}
	}
	return Range{spans: normalize(missing)}
}

// Beyond returns the part of the range above limit.
func (r Range) Beyond(limit int) Range {
	if limit < 0 {
		limit = 0
	}
	return Full(limit).Outside(r)
}

// Union returns the pages selected by either range.
func (r Range) Union(other Range) Range {
	merged := make([]Span, 0, len(r.spans)+len(other.spans))
	merged = append(merged, r.spans...)
	merged = append(merged, other.spans...)
	return Range{spans: normalize(merged)}
}

// String renders the canonical expression, e.g. "1-3,5".
func (r Range) String() string {
	parts := make([]string, len(r.spans))
	for i, s := range r.spans {
		if s.Start == s.End {
			parts[i] = strconv.Itoa(s.Start)
		} else {
			parts[i] = fmt.Sprintf("%d-%d", s.Start, s.End)
		}
	}
	return strings.Join(parts, ",")
}

// Format renders a list of pages as a canonical expression.
func Format(pages []int) string {
	spans := make([]Span, len(pages))
	for i, p := range pages {
		spans[i] = Span{Start: p, End: p}
	}
	return Range{spans: normalize(spans)}.String()
}

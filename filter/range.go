package filter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Range is one inclusive span of 1-based item indices.
type Range struct {
	Start int
	Stop  int
}

// Ranges selects 1-based item indices.
type Ranges []Range

// ParseRange parses an index range specification. Groups are separated
// by commas; each group is a single index "8", a bounded span "4-8", or
// a half-open span "-3" or "10-". Whitespace around numbers is ignored
// and empty groups are skipped.
func ParseRange(spec string) (Ranges, error) {
	var rs Ranges
	for _, group := range strings.Split(spec, ",") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		first, last, dashed := strings.Cut(group, "-")
		first = strings.TrimSpace(first)
		last = strings.TrimSpace(last)

		r := Range{Start: 1, Stop: math.MaxInt}
		var err error
		if first != "" {
			if r.Start, err = strconv.Atoi(first); err != nil {
				return nil, fmt.Errorf("%w: bad index %q", ErrBadRange, first)
			}
		}
		switch {
		case !dashed:
			r.Stop = r.Start
		case last != "":
			if r.Stop, err = strconv.Atoi(last); err != nil {
				return nil, fmt.Errorf("%w: bad index %q", ErrBadRange, last)
			}
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// Merge returns a sorted copy with empty spans dropped and overlapping
// or adjacent spans fused. The receiver is left untouched.
func (rs Ranges) Merge() Ranges {
	var spans Ranges
	for _, r := range rs {
		if r.Start <= r.Stop {
			spans = append(spans, r)
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Stop < spans[j].Stop
	})

	merged := Ranges{spans[0]}
	for _, r := range spans[1:] {
		last := &merged[len(merged)-1]
		if last.Stop == math.MaxInt || r.Start <= last.Stop+1 {
			if r.Stop > last.Stop {
				last.Stop = r.Stop
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Contains reports whether any range covers the index.
func (rs Ranges) Contains(idx int) bool {
	for _, r := range rs {
		if idx >= r.Start && idx <= r.Stop {
			return true
		}
	}
	return false
}

// Max returns the largest index any range can match; iterating past it
// cannot produce further matches. An open-ended range reports
// math.MaxInt, an empty Ranges zero.
func (rs Ranges) Max() int {
	top := 0
	for _, r := range rs {
		if r.Stop > top {
			top = r.Stop
		}
	}
	return top
}

package coverage

import (
	"sort"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

// event is one endpoint of a range in the sweep.
type event struct {
	offset int64
	close  bool
	// index is the position of the owning range in the input.
	index int
	width int64
	count int64
}

// Flatten converts the ranges recorded for url into the sorted list of
// executed intervals. A byte counts as executed when the innermost range open
// over it has a positive count, so an unexecuted inner block punches a hole in
// an executed outer one. Adjoining executed spans are coalesced and spans of
// one byte or less are dropped.
//
// Identical spans reported with different counts nest with the larger count
// innermost, so the span counts as executed if any capture executed it. Input
// order never decides between them.
//
// The input must be laminar. Anything else yields a *MalformedRangeError and
// no result.
func Flatten(url string, ranges []schemas.Range) ([]schemas.DisjointRange, error) {
	for i, r := range ranges {
		switch {
		case r.StartOffset < 0:
			return nil, newMalformed(url, ranges, i, "negative start offset")
		case r.EndOffset <= r.StartOffset:
			return nil, newMalformed(url, ranges, i, "end offset must be greater than start offset")
		case r.Count < 0:
			return nil, newMalformed(url, ranges, i, "negative hit count")
		}
	}

	events := buildEvents(ranges)
	if err := checkLaminar(url, ranges, events); err != nil {
		return nil, err
	}
	return sweep(events), nil
}

func buildEvents(ranges []schemas.Range) []event {
	events := make([]event, 0, 2*len(ranges))
	for i, r := range ranges {
		w := r.Width()
		events = append(events,
			event{offset: r.StartOffset, index: i, width: w, count: r.Count},
			event{offset: r.EndOffset, close: true, index: i, width: w, count: r.Count},
		)
	}
	sort.Slice(events, func(i, j int) bool { return eventLess(events[i], events[j]) })
	return events
}

// eventLess orders endpoints so that they form a balanced parenthesis
// sequence for laminar input. At one offset closes come before opens, wider
// ranges open first and narrower ranges close first. Identical spans open in
// ascending count order and close in the reverse order, which keeps the
// highest count innermost and makes the order of the input irrelevant.
func eventLess(a, b event) bool {
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	if a.close != b.close {
		return a.close
	}
	if !a.close {
		if a.width != b.width {
			return a.width > b.width
		}
		if a.count != b.count {
			return a.count < b.count
		}
		return a.index < b.index
	}
	if a.width != b.width {
		return a.width < b.width
	}
	if a.count != b.count {
		return a.count > b.count
	}
	return a.index > b.index
}

// checkLaminar matches every close against the range currently on top of the
// stack. A mismatch means two ranges partially overlap.
func checkLaminar(url string, ranges []schemas.Range, events []event) error {
	open := make([]int, 0, len(ranges))
	for _, ev := range events {
		if !ev.close {
			open = append(open, ev.index)
			continue
		}
		top := open[len(open)-1]
		if top != ev.index {
			other := ranges[top]
			return newMalformed(url, ranges, ev.index,
				"partially overlaps range #%d [%d,%d)", top, other.StartOffset, other.EndOffset)
		}
		open = open[:len(open)-1]
	}
	return nil
}

func sweep(events []event) []schemas.DisjointRange {
	results := make([]schemas.DisjointRange, 0)
	counts := make([]int64, 0, len(events)/2)
	var lastOffset int64

	for _, ev := range events {
		if n := len(counts); n > 0 && counts[n-1] > 0 && lastOffset < ev.offset {
			if k := len(results); k > 0 && results[k-1].End == lastOffset {
				results[k-1].End = ev.offset
			} else {
				results = append(results, schemas.DisjointRange{Start: lastOffset, End: ev.offset})
			}
		}
		lastOffset = ev.offset
		if ev.close {
			counts = counts[:len(counts)-1]
		} else {
			counts = append(counts, ev.count)
		}
	}

	kept := results[:0]
	for _, r := range results {
		if r.End-r.Start > 1 {
			kept = append(kept, r)
		}
	}
	return kept
}

// CoveredBytes sums the widths of a flattened list.
func CoveredBytes(ranges []schemas.DisjointRange) int64 {
	var total int64
	for _, r := range ranges {
		total += r.End - r.Start
	}
	return total
}

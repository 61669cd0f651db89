// Package coverage merges per-navigation script coverage and flattens it into
// disjoint executed byte intervals.
package coverage

import "github.com/xkilldash9x/covsweep/api/schemas"

// MergedSet maps script URLs to their merged ranges and remembers the order in
// which each URL was first seen.
type MergedSet struct {
	order   []string
	entries map[string]*schemas.MergedEntry
}

// MergeByURL groups captures by URL. Each capture's ranges are appended to the
// entry for its URL, so range order within and across captures is preserved
// and nothing is deduplicated. Captures are not modified.
func MergeByURL(captures []schemas.CoverageCapture) *MergedSet {
	set := &MergedSet{entries: make(map[string]*schemas.MergedEntry)}
	for _, capture := range captures {
		entry, ok := set.entries[capture.URL]
		if !ok {
			entry = &schemas.MergedEntry{URL: capture.URL, Ranges: []schemas.Range{}}
			set.entries[capture.URL] = entry
			set.order = append(set.order, capture.URL)
		}
		entry.Ranges = append(entry.Ranges, capture.Ranges...)
	}
	return set
}

// Len returns the number of distinct URLs.
func (s *MergedSet) Len() int { return len(s.order) }

// URLs returns the URLs in first-seen order.
func (s *MergedSet) URLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns a copy of the entry for url.
func (s *MergedSet) Get(url string) (schemas.MergedEntry, bool) {
	entry, ok := s.entries[url]
	if !ok {
		return schemas.MergedEntry{}, false
	}
	return cloneEntry(entry), true
}

// Entries returns copies of all entries in first-seen order.
func (s *MergedSet) Entries() []schemas.MergedEntry {
	out := make([]schemas.MergedEntry, 0, len(s.order))
	for _, url := range s.order {
		out = append(out, cloneEntry(s.entries[url]))
	}
	return out
}

func cloneEntry(e *schemas.MergedEntry) schemas.MergedEntry {
	ranges := make([]schemas.Range, len(e.Ranges))
	copy(ranges, e.Ranges)
	return schemas.MergedEntry{URL: e.URL, Ranges: ranges}
}

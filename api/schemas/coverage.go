package schemas

import "time"

// MalformedPolicy controls what a pipeline run does with a URL whose ranges
// fail validation.
type MalformedPolicy string

const (
	// MalformedAbort stops the whole run on the first malformed URL.
	MalformedAbort MalformedPolicy = "abort"
	// MalformedSkip drops the offending URL from the report and keeps going.
	MalformedSkip MalformedPolicy = "skip"
)

// Range is one reported coverage span and how many times it executed.
// Ranges for a single URL are laminar: two of them are either disjoint or one
// contains the other.
type Range struct {
	StartOffset int64 `json:"startOffset"`
	EndOffset   int64 `json:"endOffset"`
	Count       int64 `json:"count"`
}

// Width returns the number of bytes the range spans.
func (r Range) Width() int64 { return r.EndOffset - r.StartOffset }

// CoverageCapture is a single script's coverage from one page load.
type CoverageCapture struct {
	URL    string  `json:"url"`
	Ranges []Range `json:"ranges"`
}

// MergedEntry holds every range seen for a URL across a run, in capture order.
// It is not deduplicated.
type MergedEntry struct {
	URL    string  `json:"url"`
	Ranges []Range `json:"ranges"`
}

// DisjointRange is a maximal executed byte span, half open.
type DisjointRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// FlattenedEntry is the final result for one URL. RawRanges keeps the merged
// input next to the disjoint list it produced.
type FlattenedEntry struct {
	URL           string          `json:"url"`
	RawRangeCount int             `json:"raw_range_count"`
	RawRanges     []Range         `json:"raw_ranges,omitempty"`
	Ranges        []DisjointRange `json:"ranges"`
	CoveredBytes  int64           `json:"covered_bytes"`
}

// SkippedEntry records a URL that was left out of a report.
type SkippedEntry struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// CoverageReport is the output of one aggregation run.
type CoverageReport struct {
	RunID     string           `json:"run_id"`
	Timestamp time.Time        `json:"timestamp"`
	Entries   []FlattenedEntry `json:"entries"`
	Skipped   []SkippedEntry   `json:"skipped,omitempty"`
}

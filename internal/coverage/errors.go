package coverage

import (
	"fmt"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

// MalformedRangeError reports a range list that cannot be flattened: a range
// with a non-positive width or a negative offset or count, or two ranges that
// partially overlap. It is fatal for the URL it belongs to.
type MalformedRangeError struct {
	URL string
	// Ranges is the raw list as it was handed to Flatten.
	Ranges []schemas.Range
	// Index points at the offending range in Ranges.
	Index  int
	Reason string
}

func (e *MalformedRangeError) Error() string {
	r := e.Ranges[e.Index]
	return fmt.Sprintf("malformed coverage for %q: range #%d [%d,%d) count=%d: %s",
		e.URL, e.Index, r.StartOffset, r.EndOffset, r.Count, e.Reason)
}

func newMalformed(url string, ranges []schemas.Range, index int, format string, args ...any) *MalformedRangeError {
	raw := make([]schemas.Range, len(ranges))
	copy(raw, ranges)
	return &MalformedRangeError{
		URL:    url,
		Ranges: raw,
		Index:  index,
		Reason: fmt.Sprintf(format, args...),
	}
}

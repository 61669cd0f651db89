package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// urlCoverage is the per-script record in the plain json format.
type urlCoverage struct {
	URL    string                  `json:"url"`
	Ranges []schemas.DisjointRange `json:"ranges"`
}

// JSONReporter writes reports as indented JSON. The plain form is a list of
// {url, ranges} objects; the envelope form is the whole CoverageReport
// including run metadata and skipped URLs.
type JSONReporter struct {
	mu       sync.Mutex
	w        io.WriteCloser
	envelope bool
	closed   bool
}

// NewJSONReporter takes ownership of w.
func NewJSONReporter(w io.WriteCloser, envelope bool) *JSONReporter {
	return &JSONReporter{w: w, envelope: envelope}
}

func (r *JSONReporter) Write(report *schemas.CoverageReport) error {
	if report == nil {
		return fmt.Errorf("cannot write a nil coverage report")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}

	var payload any = report
	if !r.envelope {
		list := make([]urlCoverage, 0, len(report.Entries))
		for _, e := range report.Entries {
			ranges := e.Ranges
			if ranges == nil {
				ranges = []schemas.DisjointRange{}
			}
			list = append(list, urlCoverage{URL: e.URL, Ranges: ranges})
		}
		payload = list
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode coverage report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.w.Close()
}

// Package capture turns raw DevTools coverage dumps into CoverageCapture values.
package capture

import (
	"strings"

	"github.com/chromedp/cdproto/profiler"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

// evaluationScriptURL is the sourceURL puppeteer tags its injected helper scripts with.
const evaluationScriptURL = "__puppeteer_evaluation_script__"

// Options controls which scripts become captures.
type Options struct {
	// IncludeAnonymous keeps scripts reported without a URL.
	IncludeAnonymous bool
}

// skipURL reports whether a script should be left out of the capture set.
func (o Options) skipURL(url string) bool {
	if url == "" {
		return !o.IncludeAnonymous
	}
	return url == evaluationScriptURL || strings.HasPrefix(url, "pptr:")
}

// FromScriptCoverage converts one Profiler.takePreciseCoverage result into
// captures, one per script. The ranges of every function are concatenated in
// reporting order; the function boundaries themselves carry no meaning for
// flattening.
func FromScriptCoverage(scripts []*profiler.ScriptCoverage, opts Options) []schemas.CoverageCapture {
	captures := make([]schemas.CoverageCapture, 0, len(scripts))
	for _, script := range scripts {
		if script == nil || opts.skipURL(script.URL) {
			continue
		}
		captures = append(captures, schemas.CoverageCapture{
			URL:    script.URL,
			Ranges: functionRanges(script.Functions),
		})
	}
	return captures
}

func functionRanges(functions []*profiler.FunctionCoverage) []schemas.Range {
	ranges := []schemas.Range{}
	for _, fn := range functions {
		if fn == nil {
			continue
		}
		for _, r := range fn.Ranges {
			if r == nil {
				continue
			}
			ranges = append(ranges, schemas.Range{
				StartOffset: r.StartOffset,
				EndOffset:   r.EndOffset,
				Count:       r.Count,
			})
		}
	}
	return ranges
}

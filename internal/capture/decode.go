package capture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/chromedp/cdproto/profiler"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rawEntry accepts both the flat capture shape and a DevTools ScriptCoverage.
type rawEntry struct {
	URL       string                       `json:"url"`
	Ranges    []schemas.Range              `json:"ranges"`
	Functions []*profiler.FunctionCoverage `json:"functions"`
}

// takeCoverageResult is the raw Profiler.takePreciseCoverage response body.
type takeCoverageResult struct {
	Result []rawEntry `json:"result"`
}

// Decode reads one navigation's worth of coverage. The input is either a JSON
// array of entries or a Profiler.takePreciseCoverage response object. An entry
// with a "functions" list is treated as a DevTools script coverage; otherwise
// its "ranges" are taken as they are.
func Decode(r io.Reader, opts Options) ([]schemas.CoverageCapture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []schemas.CoverageCapture{}, nil
	}

	var entries []rawEntry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode coverage array: %w", err)
		}
	case '{':
		var res takeCoverageResult
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("failed to decode coverage response: %w", err)
		}
		entries = res.Result
	default:
		return nil, fmt.Errorf("coverage input must be a JSON array or object, got %q", data[0])
	}

	captures := make([]schemas.CoverageCapture, 0, len(entries))
	for _, e := range entries {
		if opts.skipURL(e.URL) {
			continue
		}
		c := schemas.CoverageCapture{URL: e.URL}
		if e.Functions != nil {
			c.Ranges = functionRanges(e.Functions)
		} else {
			c.Ranges = append([]schemas.Range{}, e.Ranges...)
		}
		captures = append(captures, c)
	}
	return captures, nil
}

// LoadFiles decodes each file in order and concatenates the captures. File
// order is taken as navigation order. Paths may start with "~", and files
// ending in ".br" are brotli-decompressed first.
func LoadFiles(paths []string, opts Options) ([]schemas.CoverageCapture, error) {
	var all []schemas.CoverageCapture
	for _, p := range paths {
		captures, err := loadFile(p, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, captures...)
	}
	return all, nil
}

func loadFile(path string, opts Options) ([]schemas.CoverageCapture, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path %s: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", expanded, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(expanded, ".br") {
		r = brotli.NewReader(f)
	}
	captures, err := Decode(r, opts)
	if err != nil {
		return nil, fmt.Errorf("capture file %s: %w", expanded, err)
	}
	return captures, nil
}

// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

// Reporter hands a finished coverage report to its destination.
type Reporter interface {
	// Write emits one report.
	Write(report *schemas.CoverageReport) error
	// Close finalizes the output and releases any underlying file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var envelope bool
	switch format {
	case "json":
	case "json-envelope":
		envelope = true
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if outputPath == "" || outputPath == "stdout" {
		return NewJSONReporter(&nopWriteCloser{stdout}, envelope), nil
	}

	expanded, err := homedir.Expand(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
	}
	f, err := os.Create(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", expanded, err)
	}
	return NewJSONReporter(f, envelope), nil
}

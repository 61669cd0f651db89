// File: cmd/flatten.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xkilldash9x/covsweep/api/schemas"
	"github.com/xkilldash9x/covsweep/internal/capture"
	"github.com/xkilldash9x/covsweep/internal/config"
	"github.com/xkilldash9x/covsweep/internal/engine"
	"github.com/xkilldash9x/covsweep/internal/observability"
	"github.com/xkilldash9x/covsweep/internal/reporting"
)

// newFlattenCmd creates and configures the `flatten` command.
func newFlattenCmd() *cobra.Command {
	var (
		output           string
		format           string
		concurrency      int
		onMalformed      string
		includeAnonymous bool
	)

	flattenCmd := &cobra.Command{
		Use:   "flatten [capture files...]",
		Short: "Merge coverage captures and print executed byte intervals per script",
		Long: `Reads one coverage capture per file, in the order given (use "-" for stdin),
merges the ranges of every script URL across captures, and reduces them to the sorted
list of byte intervals that executed at least once.

Each file holds either a JSON array of {url, ranges} captures, an array of DevTools
ScriptCoverage objects, or a raw Profiler.takePreciseCoverage response.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.SetReportOutput(output)
			}
			if flags.Changed("format") {
				cfg.SetReportFormat(format)
			}
			if flags.Changed("concurrency") {
				cfg.SetCoverageConcurrency(concurrency)
			}
			if flags.Changed("on-malformed") {
				cfg.SetCoverageOnMalformed(schemas.MalformedPolicy(onMalformed))
			}
			if flags.Changed("include-anonymous") {
				cfg.SetCoverageIncludeAnonymous(includeAnonymous)
			}

			return runFlatten(ctx, observability.GetLogger(), cfg, args, cmd.InOrStdin())
		},
	}

	flattenCmd.Flags().StringVarP(&output, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	flattenCmd.Flags().StringVarP(&format, "format", "f", "json", "Report format: 'json' or 'json-envelope'.")
	flattenCmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of scripts flattened in parallel.")
	flattenCmd.Flags().StringVar(&onMalformed, "on-malformed", string(schemas.MalformedAbort), "What to do with malformed coverage: 'abort' or 'skip'.")
	flattenCmd.Flags().BoolVar(&includeAnonymous, "include-anonymous", false, "Keep scripts that were reported without a URL.")

	return flattenCmd
}

// runFlatten contains the core, testable logic of the flatten command.
func runFlatten(ctx context.Context, logger *zap.Logger, cfg config.Interface, inputs []string, stdin io.Reader) error {
	covCfg := cfg.Coverage()
	if err := covCfg.Validate(); err != nil {
		return err
	}
	reportCfg := cfg.Report()
	if err := reportCfg.Validate(); err != nil {
		return err
	}

	captures, err := readCaptures(inputs, stdin, capture.Options{IncludeAnonymous: covCfg.IncludeAnonymous})
	if err != nil {
		return err
	}
	logger.Info("Loaded coverage captures", zap.Int("inputs", len(inputs)), zap.Int("captures", len(captures)))

	report, err := engine.New(covCfg, logger).Run(ctx, captures)
	if err != nil && report == nil {
		return err
	}
	for _, skipErr := range multierr.Errors(err) {
		logger.Warn("Script left out of report", zap.Error(skipErr))
	}

	reporter, err := reporting.New(reportCfg.Format, reportCfg.Output)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(report); err != nil {
		_ = reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to close reporter: %w", err)
	}

	if reportCfg.Output != "" && reportCfg.Output != "stdout" {
		logger.Info("Report successfully written to file", zap.String("path", reportCfg.Output))
	}
	return nil
}

// readCaptures loads every input in order; "-" reads from stdin.
func readCaptures(inputs []string, stdin io.Reader, opts capture.Options) ([]schemas.CoverageCapture, error) {
	var all []schemas.CoverageCapture
	for _, in := range inputs {
		var (
			captures []schemas.CoverageCapture
			err      error
		)
		if in == "-" {
			captures, err = capture.Decode(stdin, opts)
			if err != nil {
				err = fmt.Errorf("stdin: %w", err)
			}
		} else {
			captures, err = capture.LoadFiles([]string{in}, opts)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, captures...)
	}
	return all, nil
}

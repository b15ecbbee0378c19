package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/batch"
	"github.com/sells-group/tradecheck/internal/report"
)

var (
	classifyInput       string
	classifyOutput      string
	classifyFormat      string
	classifySummary     string
	classifySheet       string
	classifyEncoding    string
	classifyConcurrency int
	classifyLimit       int
	classifyOnError     string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify every item of a CSV or XLSX file against the restriction catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyClassifyFlags()

		format, err := outputFormat(classifyFormat, classifyOutput)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "classify")
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := batch.ReadItems(ctx, classifyInput, batch.InputOptions{
			Encoding: cfg.Batch.Encoding,
			Sheet:    classifySheet,
			Limit:    cfg.Batch.Limit,
		})
		if err != nil {
			return err
		}
		zap.L().Info("classify: items loaded", zap.String("input", classifyInput), zap.Int("items", len(items)))

		rep, runErr := batch.Run(ctx, items, func() (batch.Classifier, error) {
			return env.NewEngine(), nil
		}, batch.Options{
			Concurrency:   cfg.Batch.Concurrency,
			OnError:       batch.OnError(cfg.Batch.OnError),
			ProgressEvery: cfg.Batch.ProgressEvery,
			Pricing:       pricing(),
			Model:         env.Model,
		})
		if rep == nil {
			return eris.Wrap(runErr, "classify")
		}

		// Partial results are written even when the batch aborted.
		if err := writeRows(classifyOutput, format, rep); err != nil {
			return err
		}
		if err := writeSummary(classifySummary, rep.Summary()); err != nil {
			return err
		}

		logSummary(rep.Summary())
		if runErr != nil {
			return eris.Wrap(runErr, "classify")
		}
		return nil
	},
}

// applyClassifyFlags lets explicit flags override the batch config.
func applyClassifyFlags() {
	if classifyConcurrency > 0 {
		cfg.Batch.Concurrency = classifyConcurrency
	}
	if classifyOnError != "" {
		cfg.Batch.OnError = classifyOnError
	}
	if classifyEncoding != "" {
		cfg.Batch.Encoding = classifyEncoding
	}
	if classifyLimit > 0 {
		cfg.Batch.Limit = classifyLimit
	}
}

// outputFormat resolves the report format from the flag, then the output
// file extension, then csv.
func outputFormat(flag, output string) (report.Format, error) {
	switch {
	case flag != "":
		return report.ParseFormat(flag)
	case output != "" && filepath.Ext(output) != "":
		return report.ParseFormat(output)
	default:
		return report.FormatCSV, nil
	}
}

func writeRows(path string, format report.Format, rep *batch.Report) error {
	return withOutput(path, func(w io.Writer) error {
		return report.Write(w, format, rep.Rows)
	})
}

func writeSummary(path string, s batch.Summary) error {
	if path == "" {
		return nil
	}
	return withOutput(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	})
}

// withOutput runs fn against the file at path, or stdout when path is empty
// or "-".
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func logSummary(s batch.Summary) {
	fields := []zap.Field{
		zap.String("run_id", s.RunID),
		zap.Int("items", s.Items),
		zap.Int("classified", s.Classified),
		zap.Int("restricted", s.Restricted),
		zap.Int("failed", s.Failed),
		zap.Int("rows", s.Rows),
		zap.Bool("aborted", s.Aborted),
		zap.Float64("elapsed_seconds", s.ElapsedSeconds),
		zap.Float64("estimated_cost_usd", s.EstimatedCostUSD),
	}
	if s.Usage.MeanTotalTokens != nil {
		fields = append(fields, zap.Float64("mean_total_tokens", *s.Usage.MeanTotalTokens))
	}
	zap.L().Info("classify complete", fields...)
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyInput, "csv", "", "input CSV or XLSX with hs_code and description columns (required)")
	f.StringVar(&classifyOutput, "output", "", "report path; stdout when empty")
	f.StringVar(&classifyFormat, "format", "", "report format: csv, xlsx or json (default from --output extension)")
	f.StringVar(&classifySummary, "summary", "", "write the run summary as JSON to this path")
	f.StringVar(&classifySheet, "sheet", "", "XLSX sheet name (default first sheet)")
	f.StringVar(&classifyEncoding, "encoding", "", "CSV encoding (default from config)")
	f.IntVar(&classifyConcurrency, "concurrency", 0, "parallel workers (default from config)")
	f.IntVar(&classifyLimit, "limit", 0, "classify at most this many items")
	f.StringVar(&classifyOnError, "on-error", "", "failed item policy: skip or abort (default from config)")
	_ = classifyCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(classifyCmd)
}

package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
	"github.com/sells-group/tradecheck/internal/tabular"
)

// Input columns.
const (
	ColumnCode        = "hs_code"
	ColumnDescription = "description"
)

// InputOptions configures ReadItems.
type InputOptions struct {
	// Encoding of CSV input; see tabular.Decode.
	Encoding string
	// Sheet selects an XLSX sheet by name; default is the first.
	Sheet string
	// Limit caps the number of items returned; 0 means all.
	Limit int
}

// ReadItems loads classifier input from a CSV or XLSX file with hs_code and
// description columns.
func ReadItems(ctx context.Context, path string, opts InputOptions) ([]model.Item, error) {
	var (
		rows *tabular.Rows
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = tabular.ReadXLSX(path, tabular.XLSXOptions{SheetName: opts.Sheet})
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err = tabular.ReadCSV(ctx, f, tabular.CSVOptions{Encoding: opts.Encoding, LazyQuotes: true})
	}
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	return ItemsFromRows(rows, opts.Limit)
}

// ItemsFromRows converts a table into items. Codes lose their periods and a
// cell listing several comma-separated codes becomes one item per code, all
// sharing the row's line number. A row with no code yields one item with an
// empty code, which matches every catalog record.
func ItemsFromRows(rows *tabular.Rows, limit int) ([]model.Item, error) {
	if err := rows.Header.Require(ColumnCode, ColumnDescription); err != nil {
		return nil, eris.Wrap(err, "batch: input")
	}

	var items []model.Item
	for i, row := range rows.Data {
		line := i + 2
		desc := strings.TrimSpace(rows.Header.Get(row, ColumnDescription))
		rawCode := rows.Header.Get(row, ColumnCode)
		if desc == "" && strings.TrimSpace(rawCode) == "" {
			continue
		}

		codes := hscode.Split(rawCode)
		if len(codes) == 0 {
			zap.L().Warn("batch: row without hs_code matches every restriction", zap.Int("line", line))
			codes = []hscode.Code{""}
		}
		for _, code := range codes {
			if code != "" && !code.Valid() {
				zap.L().Warn("batch: non-numeric hs_code", zap.Int("line", line), zap.String("hs_code", string(code)))
			}
			items = append(items, model.Item{Code: code, Description: desc, Line: line})
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
	}
	return items, nil
}

// Package report writes classification rows as CSV, XLSX or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/tradecheck/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch Format(s) {
	case FormatCSV, FormatXLSX, FormatJSON:
		return Format(s), nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// Columns is the header of tabular reports.
var Columns = []string{
	"hs_code",
	"description",
	"restricted_codes",
	"restricted_item",
	"restriction",
	"distance",
	"elapsed_retrieval_ms",
	"elapsed_arbitration_ms",
	"elapsed_total_ms",
	"prompt_tokens",
	"completion_tokens",
	"total_tokens",
	"error",
	"run_id",
}

// Record renders a row as cells matching Columns. Absent usage values are
// empty cells.
func Record(r model.Row) []string {
	return []string{
		r.HSCode,
		r.Description,
		r.RestrictedCodes,
		r.RestrictedItem,
		r.Restriction,
		strconv.FormatFloat(r.Distance, 'f', -1, 64),
		millis(&r.Usage.RetrievalElapsed),
		millis(r.Usage.ArbitrationElapsed),
		millis(&r.Usage.TotalElapsed),
		count(r.Usage.PromptTokens),
		count(r.Usage.CompletionTokens),
		count(r.Usage.TotalTokens),
		r.Error,
		r.RunID,
	}
}

func millis(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*d)/float64(time.Millisecond), 'f', 3, 64)
}

func count(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

// Write renders rows to w in format f.
func Write(w io.Writer, f Format, rows []model.Row) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

// WriteCSV writes a header and one line per row.
func WriteCSV(w io.Writer, rows []model.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "report: csv header")
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return eris.Wrap(err, "report: csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: csv flush")
}

// WriteXLSX writes a single "Restrictions" sheet.
func WriteXLSX(w io.Writer, rows []model.Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Restrictions")
	if err != nil {
		return eris.Wrap(err, "report: xlsx sheet")
	}
	addRow(sheet, Columns)
	for _, r := range rows {
		addRow(sheet, Record(r))
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: xlsx write")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []model.Row) error {
	if rows == nil {
		rows = []model.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "report: json")
	}
	return nil
}

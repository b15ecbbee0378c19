// Package tabular reads the CSV and XLSX files fed to ingestion and batch
// classification.
package tabular

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Encoding   string // see Decode; default utf-8
	Comment    rune   // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads a CSV file and sends rows, header included, to a channel.
// Caller must consume the returned row channel. Errors are sent on the error
// channel. Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		decoded, err := Decode(r, opts.Encoding)
		if err != nil {
			errCh <- err
			return
		}
		reader := csv.NewReader(decoded)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// Header maps lower-cased column names to their index.
type Header map[string]int

// NewHeader indexes a header row.
func NewHeader(row []string) Header {
	h := make(Header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

// Require returns an error naming every missing column.
func (h Header) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("tabular: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the named cell of row, or "" when absent.
func (h Header) Get(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Rows is a table with its header split off. Line numbers are 1-based file
// rows, so the first data row is line 2.
type Rows struct {
	Header Header
	Data   [][]string
}

// ReadCSV reads a whole CSV with a header row.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*Rows, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)
	return collect(rowCh, errCh)
}

func collect(rowCh <-chan []string, errCh <-chan error) (*Rows, error) {
	out := &Rows{}
	first := true
	for row := range rowCh {
		if first {
			out.Header = NewHeader(row)
			first = false
			continue
		}
		out.Data = append(out.Data, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if first {
		return nil, eris.New("tabular: empty input")
	}
	return out, nil
}

// Package ingest loads a restriction spreadsheet into the catalog.
package ingest

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tradecheck/internal/catalog"
	"github.com/sells-group/tradecheck/internal/embedding"
	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
	"github.com/sells-group/tradecheck/internal/tabular"
)

// Restriction file columns.
const (
	ColumnCode        = "hs_code"
	ColumnItem        = "item"
	ColumnRestriction = "restriction"
)

// Options configures Load.
type Options struct {
	Encoding string
	// BatchSize is the number of labels per embedding request. Default 64.
	BatchSize int
	// Concurrency is the number of embedding requests in flight. Default 2.
	Concurrency int
}

// Stats reports what Load did.
type Stats struct {
	Records int
	Skipped int
	Stored  int64
}

// ReadFile parses a restriction CSV at path.
func ReadFile(ctx context.Context, path string, encoding string) ([]model.Restriction, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := tabular.ReadCSV(ctx, f, tabular.CSVOptions{Encoding: encoding, LazyQuotes: true})
	if err != nil {
		return nil, 0, eris.Wrapf(err, "ingest: read %s", path)
	}
	return Restrictions(rows)
}

// Restrictions converts a restriction table into records. A code cell
// listing several comma-separated codes yields one record per code. Rows
// without an item label are skipped and counted.
func Restrictions(rows *tabular.Rows) ([]model.Restriction, int, error) {
	if err := rows.Header.Require(ColumnCode, ColumnItem, ColumnRestriction); err != nil {
		return nil, 0, eris.Wrap(err, "ingest")
	}

	var (
		out     []model.Restriction
		skipped int
	)
	for i, row := range rows.Data {
		item := strings.TrimSpace(rows.Header.Get(row, ColumnItem))
		codes := hscode.Split(rows.Header.Get(row, ColumnCode))
		if item == "" || len(codes) == 0 {
			zap.L().Warn("ingest: skipping row", zap.Int("line", i+2), zap.Bool("has_item", item != ""), zap.Int("codes", len(codes)))
			skipped++
			continue
		}
		text := strings.TrimSpace(rows.Header.Get(row, ColumnRestriction))
		for _, code := range codes {
			out = append(out, model.Restriction{Code: code, Item: item, Text: text})
		}
	}
	return out, skipped, nil
}

// Embed vectorises each record's item label. Codes and restriction text are
// not embedded.
func Embed(ctx context.Context, emb embedding.Embedder, recs []model.Restriction, opts Options) ([]catalog.Entry, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = 64
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 2
	}

	entries := make([]catalog.Entry, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, r := range recs[start:end] {
				texts = append(texts, r.Item)
			}
			vecs, err := emb.EmbedDocuments(gctx, texts)
			if err != nil {
				return eris.Wrapf(err, "ingest: embed records %d-%d", start, end-1)
			}
			if len(vecs) != len(texts) {
				return eris.Errorf("ingest: embedder returned %d vectors for %d labels", len(vecs), len(texts))
			}
			for i, v := range vecs {
				entries[start+i] = catalog.Entry{Restriction: recs[start+i], Vector: v}
			}
			zap.L().Debug("ingest: embedded batch", zap.Int("from", start), zap.Int("to", end-1))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Load reads path, embeds every record and replaces the catalog contents.
func Load(ctx context.Context, path string, emb embedding.Embedder, cat catalog.Catalog, opts Options) (*Stats, error) {
	recs, skipped, err := ReadFile(ctx, path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Records: len(recs), Skipped: skipped}
	if len(recs) == 0 {
		return stats, eris.Errorf("ingest: %s has no restriction records", path)
	}

	zap.L().Info("ingest: embedding restrictions",
		zap.Int("records", len(recs)),
		zap.String("embedder", emb.Name()),
	)
	entries, err := Embed(ctx, emb, recs, opts)
	if err != nil {
		return stats, err
	}

	stored, err := cat.Replace(ctx, entries)
	if err != nil {
		return stats, eris.Wrap(err, "ingest: replace catalog")
	}
	stats.Stored = stored
	return stats, nil
}

// Package catalog stores restriction records with their embeddings and
// answers filtered nearest-neighbour queries over them.
package catalog

import (
	"context"

	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

// Searcher is the vector-search side of the catalog. Nearest returns every
// record matching filter, ranked by ascending distance to text.
type Searcher interface {
	Nearest(ctx context.Context, text string, filter hscode.Filter) ([]model.Candidate, error)
}

// Entry is a restriction ready for storage together with its vector.
type Entry struct {
	model.Restriction
	Vector []float32
}

// Catalog is a searchable restriction store with its own schema lifecycle.
type Catalog interface {
	Searcher
	// Replace swaps the whole catalog for entries in one transaction.
	Replace(ctx context.Context, entries []Entry) (int64, error)
	Count(ctx context.Context) (int64, error)
	Migrate(ctx context.Context) error
	Close() error
}

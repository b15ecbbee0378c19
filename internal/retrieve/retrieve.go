// Package retrieve narrows the restriction catalog to the candidates an item
// could fall under: the code hierarchy filter first, then semantic distance.
package retrieve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/catalog"
	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

// Retriever fetches ranked candidates for one item.
type Retriever struct {
	searcher catalog.Searcher
}

// New creates a Retriever over searcher.
func New(searcher catalog.Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// Retrieve returns every catalog record applicable to code, ordered by
// ascending distance to description. No match is an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, description string, code hscode.Code) ([]model.Candidate, error) {
	filter := hscode.BuildFilter(code)

	found, err := r.searcher.Nearest(ctx, description, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieve: nearest for %s", code)
	}

	out := make([]model.Candidate, len(found))
	copy(out, found)

	fields := []zap.Field{
		zap.String("hs_code", string(code)),
		zap.Stringer("filter", filter),
		zap.Int("candidates", len(out)),
	}
	if len(out) > 0 {
		fields = append(fields,
			zap.String("closest_code", string(out[0].Code)),
			zap.Float64("closest_distance", out[0].Distance),
		)
	}
	zap.L().Debug("retrieve: candidates fetched", fields...)
	return out, nil
}

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/db"
	"github.com/sells-group/tradecheck/internal/embedding"
	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

// Options configures a catalog backend.
type Options struct {
	// Table holds the restrictions. Default "restrictions".
	Table string
	// MaxCandidates caps Nearest results; 0 returns every filtered record.
	MaxCandidates int
	// MaxConns and MinConns size the Postgres pool.
	MaxConns int32
	MinConns int32
}

// Postgres is a Catalog on PostgreSQL with the pgvector extension. Distances
// are pgvector cosine distances (the <=> operator).
type Postgres struct {
	pool     db.Pool
	embedder embedding.Embedder
	table    string
	limit    int
}

var _ Catalog = (*Postgres)(nil)

// NewPostgres connects a pool and returns the catalog.
func NewPostgres(ctx context.Context, connString string, embedder embedding.Embedder, opts Options) (*Postgres, error) {
	table, err := validateTable(opts.Table)
	if err != nil {
		return nil, err
	}

	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if opts.MaxConns > 0 {
		pgxCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pgxCfg.MinConns = opts.MinConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool, embedder: embedder, table: table, limit: opts.MaxCandidates}, nil
}

// Migrate creates the pgvector extension, the table and its code index.
// Nearest always scans exactly, so no vector index is kept.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id               BIGSERIAL PRIMARY KEY,
	hs_code          TEXT NOT NULL,
	item             TEXT NOT NULL,
	restriction_text TEXT NOT NULL,
	embedding        vector(%d) NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`, p.table, p.embedder.Dimensions()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_hs_code ON %s (hs_code text_pattern_ops)`, p.table, p.table),
		// Vector indexes scan approximately and can miss filtered rows under LIMIT.
		fmt.Sprintf(`DROP INDEX IF EXISTS idx_%s_embedding`, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate catalog")
		}
	}
	return nil
}

// Nearest implements Searcher.
func (p *Postgres) Nearest(ctx context.Context, text string, filter hscode.Filter) ([]model.Candidate, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: embed query")
	}

	args := []any{vectorLiteral(vec)}
	where := renderFilter(filter, "hs_code", func(arg any) string {
		args = append(args, arg)
		return fmt.Sprintf("$%d", len(args))
	})
	query := fmt.Sprintf(`SELECT hs_code, item, restriction_text, embedding <=> $1::vector AS distance FROM %s WHERE %s ORDER BY distance ASC, id ASC`, p.table, where)
	if p.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", p.limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: nearest query")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var (
			c    model.Candidate
			code string
		)
		if err := rows.Scan(&code, &c.Item, &c.Text, &c.Distance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		c.Code = hscode.Code(code)
		c.Distance = clampDistance(c.Distance)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate candidates")
	}
	return out, nil
}

var loadColumns = []string{"hs_code", "item", "restriction_text", "embedding"}

// Replace stages entries in a temp table through COPY, then swaps the
// catalog contents in the same transaction.
func (p *Postgres) Replace(ctx context.Context, entries []Entry) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: replace: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE _restriction_load (hs_code TEXT, item TEXT, restriction_text TEXT, embedding TEXT) ON COMMIT DROP`); err != nil {
		return 0, eris.Wrap(err, "postgres: replace: create staging table")
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{string(e.Code), e.Item, e.Text, vectorLiteral(e.Vector)}
	}
	if _, err := db.CopyFrom(ctx, tx, "_restriction_load", loadColumns, rows); err != nil {
		return 0, eris.Wrap(err, "postgres: replace: stage rows")
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, p.table)); err != nil {
		return 0, eris.Wrap(err, "postgres: replace: truncate")
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (hs_code, item, restriction_text, embedding) SELECT hs_code, item, restriction_text, embedding::vector FROM _restriction_load`, p.table))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: replace: insert")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: replace: commit")
	}

	zap.L().Info("postgres: catalog replaced",
		zap.String("table", p.table),
		zap.Int64("rows", tag.RowsAffected()),
	)
	return tag.RowsAffected(), nil
}

// Count returns the number of stored restrictions.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, p.table)).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count")
	}
	return n, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"

	"github.com/sells-group/tradecheck/internal/embedding"
	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("vector_distance_cos", 2, sqliteDistanceCos); err != nil {
		panic(eris.Wrap(err, "sqlite: register vector_distance_cos"))
	}
}

// sqliteDistanceCos is the SQL function vector_distance_cos(a, b) over
// little-endian float32 blobs.
func sqliteDistanceCos(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, eris.New("vector_distance_cos expects 2 arguments")
	}
	vecs := make([][]float32, 2)
	for i, arg := range args {
		blob, ok := arg.([]byte)
		if !ok {
			return nil, eris.Errorf("vector_distance_cos: argument %d is %T, want blob", i+1, arg)
		}
		v, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return cosineDistance(vecs[0], vecs[1])
}

// SQLite is a Catalog in a local SQLite file. Distances are computed by the
// registered vector_distance_cos function over every filtered row.
type SQLite struct {
	db       *sql.DB
	embedder embedding.Embedder
	table    string
	limit    int
}

var _ Catalog = (*SQLite)(nil)

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string, embedder embedding.Embedder, opts Options) (*SQLite, error) {
	table, err := validateTable(opts.Table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db, embedder: embedder, table: table, limit: opts.MaxCandidates}, nil
}

// Migrate creates the table and its code index.
func (s *SQLite) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	hs_code          TEXT NOT NULL,
	item             TEXT NOT NULL,
	restriction_text TEXT NOT NULL,
	embedding        BLOB NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_hs_code ON %s (hs_code)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "sqlite: migrate catalog")
		}
	}
	return nil
}

// Nearest implements Searcher.
func (s *SQLite) Nearest(ctx context.Context, text string, filter hscode.Filter) ([]model.Candidate, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: embed query")
	}

	args := []any{encodeVector(vec)}
	where := renderFilter(filter, "hs_code", func(arg any) string {
		args = append(args, arg)
		return "?"
	})
	query := fmt.Sprintf(`SELECT hs_code, item, restriction_text, vector_distance_cos(embedding, ?) AS distance FROM %s WHERE %s ORDER BY distance ASC, id ASC`, s.table, where)
	if s.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", s.limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: nearest query")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Candidate
	for rows.Next() {
		var (
			c    model.Candidate
			code string
		)
		if err := rows.Scan(&code, &c.Item, &c.Text, &c.Distance); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		c.Code = hscode.Code(code)
		c.Distance = clampDistance(c.Distance)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate candidates")
	}
	return out, nil
}

// Replace deletes every stored restriction and inserts entries in one
// transaction.
func (s *SQLite) Replace(ctx context.Context, entries []Entry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: replace: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return 0, eris.Wrap(err, "sqlite: replace: delete")
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (hs_code, item, restriction_text, embedding) VALUES (?, ?, ?, ?)`, s.table))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: replace: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, string(e.Code), e.Item, e.Text, encodeVector(e.Vector)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: replace: insert %s", e.Code)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: replace: commit")
	}

	zap.L().Info("sqlite: catalog replaced",
		zap.String("table", s.table),
		zap.Int("rows", len(entries)),
	)
	return int64(len(entries)), nil
}

// Count returns the number of stored restrictions.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count")
	}
	return n, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// SQLSource reads the result set of a query.
type SQLSource struct {
	driver string
	dsn    string
	query  string
	name   string
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLSource builds a source from a driver, DSN and query or table.
func NewSQLSource(cfg Config, logger *slog.Logger) (*SQLSource, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	driver, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(cfg.Query)
	name := driver + ":query"
	if query == "" {
		if cfg.Table == "" {
			return nil, fmt.Errorf("%w: sql source requires a query or a table", ErrSourceUnreadable)
		}
		query = "SELECT * FROM " + QuoteTable(cfg.Table)
		name = driver + ":" + cfg.Table
	}

	return &SQLSource{driver: driver, dsn: cfg.DSN, query: query, name: name, logger: logger}, nil
}

// NewSQLSourceFromDB reads query through an existing connection. The
// connection is not closed by Read.
func NewSQLSourceFromDB(db *sql.DB, name, query string, logger *slog.Logger) *SQLSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLSource{name: name, query: query, db: db, logger: logger}
}

// Name returns driver:table or driver:query.
func (s *SQLSource) Name() string {
	return s.name
}

// Query returns the statement the source executes.
func (s *SQLSource) Query() string {
	return s.query
}

// Read runs the query. NULL becomes nil and byte slices become strings.
// Row.Line is the 1-based position in the result set.
func (s *SQLSource) Read(ctx context.Context) (*core.Dataset, error) {
	db := s.db
	if db == nil {
		s.logger.Debug("connecting to database", slog.String("driver", s.driver))

		var err error
		db, err = sql.Open(s.driver, s.dsn)
		if err != nil {
			return nil, unreadable(s.name, "connect", err)
		}
		defer func() { _ = db.Close() }()

		if err := db.PingContext(ctx); err != nil {
			return nil, unreadable(s.name, "connect", err)
		}
	}

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, unreadable(s.name, "query", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, unreadable(s.name, "columns", err)
	}

	ds := &core.Dataset{Name: s.name, Columns: columns}
	for i := 0; rows.Next(); i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, unreadable(s.name, fmt.Sprintf("row %d", i+1), err)
		}
		for j, v := range values {
			if b, ok := v.([]byte); ok {
				values[j] = string(b)
			}
		}
		ds.Rows = append(ds.Rows, core.NewRow(i, i+1, columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, unreadable(s.name, "rows", err)
	}

	s.logger.Debug("query loaded", slog.String("source", s.name), slog.Int("rows", ds.Len()))
	return ds, nil
}

// driverName maps user-facing driver names to registered database/sql drivers.
func driverName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pgx", "postgres", "postgresql":
		return "pgx", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "duckdb":
		return "duckdb", nil
	default:
		return "", fmt.Errorf("%w: sql driver %q", ErrUnsupportedSource, name)
	}
}

// QuoteTable quotes each dot-separated part of a table reference.
func QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

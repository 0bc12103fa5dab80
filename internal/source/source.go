// Package source reads tabular datasets from spreadsheets, delimited files
// and SQL databases into core.Dataset values.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/normalize"
)

// Source types.
const (
	TypeXLSX = "xlsx"
	TypeCSV  = "csv"
	TypeSQL  = "sql"
)

var (
	// ErrSourceUnreadable indicates the dataset could not be opened or iterated.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrUnsupportedSource indicates an unknown source type, extension or encoding.
	ErrUnsupportedSource = errors.New("unsupported source")
)

// SourceError describes a failure reading a specific source.
type SourceError struct {
	Source    string // File path or driver name
	Component string // Sheet, header, row, query...
	Err       error
}

func (e *SourceError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Component, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// unreadable wraps err so that it matches ErrSourceUnreadable.
func unreadable(source, component string, err error) error {
	return &SourceError{
		Source:    source,
		Component: component,
		Err:       fmt.Errorf("%w: %w", ErrSourceUnreadable, err),
	}
}

// Source produces a dataset.
type Source interface {
	// Name identifies the source in logs and run history.
	Name() string
	// Read loads the whole dataset.
	Read(ctx context.Context) (*core.Dataset, error)
}

// Config selects and parameterizes a source.
type Config struct {
	// Type is xlsx, csv or sql. Inferred from the path extension when empty.
	Type string
	// Path is the file to read for xlsx and csv.
	Path string
	// Sheet is the worksheet name. Empty selects the first sheet.
	Sheet string
	// HeaderRow is the 1-based row holding column names.
	// Zero selects the type's default.
	HeaderRow int
	// Encoding is the character set of a csv file.
	Encoding string

	// Driver, DSN and either Query or Table configure a sql source.
	Driver string
	DSN    string
	Query  string
	Table  string
}

// Open builds the source described by cfg.
// If logger is nil, a discard logger is used.
func Open(cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch typ := resolveType(cfg.Type, cfg.Path); typ {
	case TypeXLSX:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: xlsx source requires a path", ErrSourceUnreadable)
		}
		return &XLSXSource{path: cfg.Path, sheet: cfg.Sheet, headerRow: cfg.HeaderRow, logger: logger}, nil
	case TypeCSV:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: csv source requires a path", ErrSourceUnreadable)
		}
		return &CSVSource{path: cfg.Path, encoding: cfg.Encoding, headerRow: cfg.HeaderRow, logger: logger}, nil
	case TypeSQL:
		return NewSQLSource(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: type %q for %q", ErrUnsupportedSource, typ, cfg.Path)
	}
}

// OpenReader builds a file source over an in-memory upload. name supplies
// the extension when cfg.Type is empty.
func OpenReader(name string, r io.Reader, cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch typ := resolveType(cfg.Type, name); typ {
	case TypeXLSX:
		return &XLSXSource{path: name, reader: r, sheet: cfg.Sheet, headerRow: cfg.HeaderRow, logger: logger}, nil
	case TypeCSV:
		return &CSVSource{path: name, reader: r, encoding: cfg.Encoding, headerRow: cfg.HeaderRow, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: type %q for upload %q", ErrUnsupportedSource, typ, name)
	}
}

func resolveType(typ, path string) string {
	if typ != "" {
		return strings.ToLower(typ)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return TypeXLSX
	case ".csv", ".tsv", ".txt":
		return TypeCSV
	default:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
}

// headerNames trims header cells and names blank ones by position.
func headerNames(cells []string, width int) []string {
	names := make([]string, width)
	for i := range names {
		var name string
		if i < len(cells) {
			name = normalize.TrimDecorative(cells[i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		names[i] = name
	}
	return names
}

// record is one data row before it is zipped with the header.
type record struct {
	line  int
	cells []string
}

// buildDataset zips records with the header row. Empty cells become nil.
// The header is widened when a record is longer than it.
func buildDataset(name string, header []string, records []record) *core.Dataset {
	width := len(header)
	for _, rec := range records {
		width = max(width, len(rec.cells))
	}
	columns := headerNames(header, width)

	ds := &core.Dataset{
		Name:    name,
		Columns: columns,
		Rows:    make([]core.Row, 0, len(records)),
	}
	for i, rec := range records {
		values := make([]any, len(rec.cells))
		for j, c := range rec.cells {
			if c != "" {
				values[j] = c
			}
		}
		ds.Rows = append(ds.Rows, core.NewRow(i, rec.line, columns, values))
	}
	return ds
}

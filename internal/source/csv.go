package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// DefaultCSVHeaderRow is the header row used when none is configured.
const DefaultCSVHeaderRow = 1

// CSVSource reads a delimited text file.
type CSVSource struct {
	path      string
	reader    io.Reader
	encoding  string
	headerRow int
	logger    *slog.Logger
}

// Name returns the file path.
func (s *CSVSource) Name() string {
	return s.path
}

// Read loads the file. Ragged rows are allowed. Row.Line is the physical
// line on which the record starts.
func (s *CSVSource) Read(ctx context.Context) (*core.Dataset, error) {
	enc, err := lookupEncoding(s.encoding)
	if err != nil {
		return nil, &SourceError{Source: s.path, Component: "encoding", Err: err}
	}

	in := s.reader
	if in == nil {
		f, err := os.Open(s.path)
		if err != nil {
			return nil, unreadable(s.path, "open", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	r := csv.NewReader(transform.NewReader(in, unicode.BOMOverride(enc.NewDecoder())))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.EqualFold(filepath.Ext(s.path), ".tsv") {
		r.Comma = '\t'
	}

	headerRow := s.headerRow
	if headerRow <= 0 {
		headerRow = DefaultCSVHeaderRow
	}

	s.logger.Debug("reading delimited file",
		slog.String("path", s.path),
		slog.String("encoding", s.encoding),
		slog.Int("header_row", headerRow))

	var (
		header  []string
		records []record
		seen    bool
	)
	for n := 1; ; n++ {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unreadable(s.path, fmt.Sprintf("record %d", n), err)
		}
		line, _ := r.FieldPos(0)

		switch {
		case n < headerRow:
		case n == headerRow:
			header = cells
			seen = true
		default:
			records = append(records, record{line: line, cells: cells})
		}
	}

	name := filepath.Base(s.path)
	if !seen {
		return &core.Dataset{Name: name}, nil
	}
	return buildDataset(name, header, records), nil
}

// lookupEncoding resolves a WHATWG encoding label. Empty means UTF-8.
func lookupEncoding(label string) (encoding.Encoding, error) {
	if strings.TrimSpace(label) == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %q", ErrUnsupportedSource, label)
	}
	return enc, nil
}

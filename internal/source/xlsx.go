package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// DefaultXLSXHeaderRow is the header row used when none is configured.
// Collection workbooks carry a title row above the header.
const DefaultXLSXHeaderRow = 2

// XLSXSource reads one worksheet of an Excel workbook.
type XLSXSource struct {
	path      string
	reader    io.Reader
	sheet     string
	headerRow int
	logger    *slog.Logger
}

// Name returns the workbook path.
func (s *XLSXSource) Name() string {
	return s.path
}

// Read loads the worksheet. Cells are read as their displayed text.
// Row.Line is the sheet row number.
func (s *XLSXSource) Read(ctx context.Context) (*core.Dataset, error) {
	var (
		f   *excelize.File
		err error
	)
	if s.reader != nil {
		f, err = excelize.OpenReader(s.reader)
	} else {
		f, err = excelize.OpenFile(s.path)
	}
	if err != nil {
		return nil, unreadable(s.path, "open", err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, unreadable(s.path, "sheet "+sheet, fmt.Errorf("worksheet not found (have %v)", f.GetSheetList()))
	}

	headerRow := s.headerRow
	if headerRow <= 0 {
		headerRow = DefaultXLSXHeaderRow
	}

	s.logger.Debug("reading worksheet",
		slog.String("path", s.path),
		slog.String("sheet", sheet),
		slog.Int("header_row", headerRow))

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, unreadable(s.path, "sheet "+sheet, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		header  []string
		records []record
		line    int
	)
	for rows.Next() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := rows.Columns()
		if err != nil {
			return nil, unreadable(s.path, fmt.Sprintf("row %d", line), err)
		}
		switch {
		case line < headerRow:
		case line == headerRow:
			header = cells
		default:
			records = append(records, record{line: line, cells: cells})
		}
	}
	if err := rows.Error(); err != nil {
		return nil, unreadable(s.path, "sheet "+sheet, err)
	}

	// Sheets shorter than the header row have no columns.
	if line < headerRow {
		return &core.Dataset{Name: filepath.Base(s.path)}, nil
	}

	ds := buildDataset(filepath.Base(s.path), header, trimTrailingEmpty(records))
	s.logger.Debug("worksheet loaded", slog.String("sheet", sheet), slog.Int("rows", ds.Len()))
	return ds, nil
}

// trimTrailingEmpty drops empty rows after the last non-empty one. Styled but
// blank rows at the end of a sheet are still reported by the row iterator.
func trimTrailingEmpty(records []record) []record {
	end := len(records)
	for end > 0 && len(records[end-1].cells) == 0 {
		end--
	}
	return records[:end]
}

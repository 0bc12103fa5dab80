package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

const sheetName = "采集点"

// newWorkbook builds a collection workbook: a title row, a header row and
// data rows with a gap at sheet row 5.
func newWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.SetSheetName("Sheet1", sheetName))
	require.NoError(t, f.SetSheetRow(sheetName, "A1", &[]any{"设备采集点表"}))
	require.NoError(t, f.SetSheetRow(sheetName, "A2", &[]any{" 设备名称\n（必填）\u3000", "状态", "", "编号"}))
	require.NoError(t, f.SetSheetRow(sheetName, "A3", &[]any{"设备A", "启用", "x", "001"}))
	require.NoError(t, f.SetSheetRow(sheetName, "A4", &[]any{"设备B", nil, nil, 42}))
	require.NoError(t, f.SetSheetRow(sheetName, "A6", &[]any{"设备C", "停用", nil, nil, "extra"}))
	return f
}

func TestXLSXSource_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "采集表.xlsx")
	require.NoError(t, newWorkbook(t).SaveAs(path))

	src, err := Open(Config{Path: path, Sheet: sheetName}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, path, src.Name())

	ds, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "采集表.xlsx", ds.Name)
	assert.Equal(t, []string{"设备名称\n（必填）", "状态", "Unnamed: 2", "编号", "Unnamed: 4"}, ds.Columns)
	require.Equal(t, 4, ds.Len())

	first := ds.Rows[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 3, first.Line, "header on row 2 puts the first record on row 3")
	v, _ := first.Get("编号")
	assert.Equal(t, "001", v, "text cells keep leading zeros")

	second := ds.Rows[1]
	v, ok := second.Get("状态")
	assert.True(t, ok)
	assert.Nil(t, v, "empty cells are nil")
	v, _ = second.Get("编号")
	assert.Equal(t, "42", v)

	gap := ds.Rows[2]
	assert.Equal(t, 5, gap.Line)
	for _, col := range ds.Columns {
		v, _ := gap.Get(col)
		assert.Nil(t, v)
	}

	last := ds.Rows[3]
	assert.Equal(t, 3, last.Index)
	assert.Equal(t, 6, last.Line)
	v, _ = last.Get("Unnamed: 4")
	assert.Equal(t, "extra", v)
}

func TestXLSXSource_FirstSheetAndHeaderRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, newWorkbook(t).SaveAs(path))

	src, err := Open(Config{Path: path, HeaderRow: 1}, nil)
	require.NoError(t, err)
	ds, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "设备采集点表", ds.Columns[0])
	require.NotEmpty(t, ds.Rows)
	assert.Equal(t, 2, ds.Rows[0].Line)
}

func TestXLSXSource_ShortSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, newWorkbook(t).SaveAs(path))

	src, err := Open(Config{Path: path, HeaderRow: 50}, nil)
	require.NoError(t, err)
	ds, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Columns)
	assert.Equal(t, 0, ds.Len())
}

func TestXLSXSource_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")
	require.NoError(t, newWorkbook(t).SaveAs(path))

	t.Run("missing sheet", func(t *testing.T) {
		src, err := Open(Config{Path: path, Sheet: "不存在"}, nil)
		require.NoError(t, err)
		_, err = src.Read(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSourceUnreadable)

		var srcErr *SourceError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, path, srcErr.Source)
		assert.Equal(t, "sheet 不存在", srcErr.Component)
	})

	t.Run("missing file", func(t *testing.T) {
		src, err := Open(Config{Path: filepath.Join(dir, "missing.xlsx")}, nil)
		require.NoError(t, err)
		_, err = src.Read(context.Background())
		assert.ErrorIs(t, err, ErrSourceUnreadable)
	})

	t.Run("not a workbook", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.xlsx")
		require.NoError(t, os.WriteFile(bad, []byte("plain text"), 0o644))
		src, err := Open(Config{Path: bad}, nil)
		require.NoError(t, err)
		_, err = src.Read(context.Background())
		assert.ErrorIs(t, err, ErrSourceUnreadable)
	})
}

func TestOpenReader_XLSX(t *testing.T) {
	buf, err := newWorkbook(t).WriteToBuffer()
	require.NoError(t, err)

	src, err := OpenReader("upload.xlsx", buf, Config{Sheet: sheetName}, nil)
	require.NoError(t, err)
	ds, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())
}

func TestCSVSource_Read(t *testing.T) {
	content := "\ufeff状态,车间\n启用,车间1\n\"多\n行\",\n停用\n"
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := Open(Config{Path: path}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	ds, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"状态", "车间"}, ds.Columns, "byte order mark is stripped")
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, 2, ds.Rows[0].Line)
	assert.Equal(t, 3, ds.Rows[1].Line)
	v, _ := ds.Rows[1].Get("状态")
	assert.Equal(t, "多\n行", v)
	v, _ = ds.Rows[1].Get("车间")
	assert.Nil(t, v)

	assert.Equal(t, 5, ds.Rows[2].Line)
	v, ok := ds.Rows[2].Get("车间")
	assert.True(t, ok)
	assert.Nil(t, v, "short records are padded with nil")
}

func TestCSVSource_Encodings(t *testing.T) {
	content := "状态,车间\n启用,车间1\n"
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "gbk.csv")
	require.NoError(t, os.WriteFile(path, []byte(gbk), 0o644))

	src, err := Open(Config{Path: path, Encoding: "gbk"}, nil)
	require.NoError(t, err)
	ds, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"状态", "车间"}, ds.Columns)
	v, _ := ds.Rows[0].Get("车间")
	assert.Equal(t, "车间1", v)

	src, err = Open(Config{Path: path, Encoding: "klingon"}, nil)
	require.NoError(t, err)
	_, err = src.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestCSVSource_HeaderRowAndEmpty(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("title\nA,B\n1,2\n"), 0o644))
	src, err := Open(Config{Path: path, HeaderRow: 2}, nil)
	require.NoError(t, err)
	ds, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ds.Columns)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, 3, ds.Rows[0].Line)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	src, err = Open(Config{Path: empty}, nil)
	require.NoError(t, err)
	ds, err = src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestSQLSource_Read(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	query := "SELECT * FROM " + QuoteTable("public.采集点")
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(
		sqlmock.NewRows([]string{"状态", "车间"}).
			AddRow([]byte("启用"), nil).
			AddRow("停用", int64(7)),
	)

	src := NewSQLSourceFromDB(db, "pgx:public.采集点", query, testutil.NewTestLogger(t))
	ds, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pgx:public.采集点", ds.Name)
	assert.Equal(t, []string{"状态", "车间"}, ds.Columns)
	require.Equal(t, 2, ds.Len())

	v, _ := ds.Rows[0].Get("状态")
	assert.Equal(t, "启用", v, "byte slices become strings")
	v, _ = ds.Rows[0].Get("车间")
	assert.Nil(t, v)
	assert.Equal(t, 1, ds.Rows[0].Line)

	v, _ = ds.Rows[1].Get("车间")
	assert.Equal(t, int64(7), v)
	assert.Equal(t, 2, ds.Rows[1].Line)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	_, err = NewSQLSourceFromDB(db, "pgx:t", "SELECT 1", nil).Read(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestSQLSource_SQLite(t *testing.T) {
	src, err := Open(Config{
		Type:   TypeSQL,
		Driver: "sqlite3",
		DSN:    "file::memory:",
		Query:  "SELECT 1 AS n, '启用' AS s, NULL AS z",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite:query", src.Name())

	ds, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	v, _ := ds.Rows[0].Get("s")
	assert.Equal(t, "启用", v)
	v, _ = ds.Rows[0].Get("z")
	assert.Nil(t, v)
}

func TestNewSQLSource(t *testing.T) {
	src, err := NewSQLSource(Config{Driver: "postgres", Table: "public.采集点"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "public"."采集点"`, src.Query())
	assert.Equal(t, "pgx:public.采集点", src.Name())

	src, err = NewSQLSource(Config{Driver: "duckdb", Query: " SELECT 1 "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", src.Query())

	_, err = NewSQLSource(Config{Driver: "oracle", Query: "SELECT 1"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	_, err = NewSQLSource(Config{Driver: "pgx"}, nil)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, `"t"`, QuoteTable("t"))
	assert.Equal(t, `"s"."t"`, QuoteTable("s.t"))
	assert.Equal(t, `"a""b"`, QuoteTable(`a"b`))
}

func TestOpen_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "unknown extension", cfg: Config{Path: "data.parquet"}, want: ErrUnsupportedSource},
		{name: "unknown type", cfg: Config{Type: "json", Path: "x"}, want: ErrUnsupportedSource},
		{name: "xlsx without path", cfg: Config{Type: TypeXLSX}, want: ErrSourceUnreadable},
		{name: "csv without path", cfg: Config{Type: TypeCSV}, want: ErrSourceUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := OpenReader("upload.json", nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestBuildDataset(t *testing.T) {
	ds := buildDataset("x", []string{"A", ""}, []record{
		{line: 2, cells: []string{"1", ""}},
		{line: 3, cells: []string{"", "", "z"}},
	})
	assert.Equal(t, []string{"A", "Unnamed: 1", "Unnamed: 2"}, ds.Columns)
	assert.Equal(t, core.Row{
		Index:   1,
		Line:    3,
		Columns: ds.Columns,
		Values:  map[string]any{"A": nil, "Unnamed: 1": nil, "Unnamed: 2": "z"},
	}, ds.Rows[1])
}

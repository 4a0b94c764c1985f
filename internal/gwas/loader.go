package gwas

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the raw concatenation of all parts. The header belongs to the
// first part; rows are padded to the header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	// PartRows records how many data rows each part contributed.
	PartRows []int
}

// Column returns the index of the named column, matching case-insensitively.
func (t *Table) Column(name string) (int, bool) {
	want := strings.TrimSpace(name)
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i, true
		}
	}
	return -1, false
}

// Records decodes the table into typed records. Unparseable numerics are
// kept as NaN so the cleaner can drop them.
func (t *Table) Records(opt Options) ([]Record, error) {
	idx := make(map[Field]int, len(RequiredColumns))
	for _, f := range RequiredColumns {
		i, ok := t.Column(string(f))
		if !ok {
			return nil, &MissingColumnError{Column: f, Table: t.Name}
		}
		idx[f] = i
	}
	out := make([]Record, len(t.Rows))
	for n, row := range t.Rows {
		out[n] = Record{
			Trait:        strings.TrimSpace(row[idx[FieldTrait]]),
			Ancestry:     strings.TrimSpace(row[idx[FieldAncestry]]),
			SampleSize:   parseNumeric(row[idx[FieldSampleSize]], opt),
			Associations: parseNumeric(row[idx[FieldAssociations]], opt),
			Date:         strings.TrimSpace(row[idx[FieldDate]]),
		}
	}
	return out, nil
}

// LoadParts reads the first part with its header and every further part with
// its header discarded, then concatenates rows in part order. The discarded
// headers are checked against the first one so columns cannot silently shift.
func LoadParts(ctx context.Context, paths []string, opt Options) (*Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no input files given", ErrInvalidInput)
	}
	t := &Table{Name: filepath.Base(paths[0])}
	if len(paths) > 1 {
		t.Name = fmt.Sprintf("%s (+%d parts)", filepath.Base(paths[0]), len(paths)-1)
	}
	// Fail on any missing part before reading anything.
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &MissingFileError{Path: p, Err: err}
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, rows, err := readPart(p, opt)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			t.Header = header
		} else if err := compareHeaders(p, t.Header, header); err != nil {
			return nil, err
		}
		for n, rec := range rows {
			if len(rec) > len(t.Header) {
				return nil, fmt.Errorf("%s: read row %d: %d fields, header has %d", p, n+2, len(rec), len(t.Header))
			}
			if len(rec) < len(t.Header) {
				tmp := make([]string, len(t.Header))
				copy(tmp, rec)
				rec = tmp
			}
			t.Rows = append(t.Rows, rec)
		}
		t.PartRows = append(t.PartRows, len(rows))
	}
	return t, nil
}

func compareHeaders(path string, want, got []string) error {
	if len(want) != len(got) {
		return &SchemaMismatchError{Path: path, Expected: want, Got: got, Column: -1}
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(want[i]), strings.TrimSpace(got[i])) {
			return &SchemaMismatchError{Path: path, Expected: want, Got: got, Column: i}
		}
	}
	return nil
}

func readPart(path string, opt Options) ([]string, [][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSXPart(path, opt.Sheet)
	}
	return readCSVPart(path, opt.Delimiter)
}

func readCSVPart(path string, delim rune) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &MissingFileError{Path: path, Err: err}
		}
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: empty file, header row expected", path)
		}
		return nil, nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	header = normalizeHeader(header)
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%s: read row %d: %w", path, len(rows)+2, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func readXLSXPart(path, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &MissingFileError{Path: path, Err: err}
		}
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("%s: workbook has no sheets", path)
		}
		sheet = sheets[0]
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read sheet %q: %w", path, sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: sheet %q is empty, header row expected", path, sheet)
	}
	return normalizeHeader(all[0]), all[1:], nil
}

// normalizeHeader trims cells and strips a UTF-8 BOM from the first one.
func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		if i == 0 {
			c = strings.TrimPrefix(c, "\uFEFF")
		}
		out[i] = strings.TrimSpace(c)
	}
	return out
}

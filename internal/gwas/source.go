package gwas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source resolves the ordered list of parts making up a dataset.
type Source interface {
	Parts() ([]string, error)
}

// PartList is an explicit, ordered list of part files.
type PartList []string

func (p PartList) Parts() ([]string, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: no input files given", ErrInvalidInput)
	}
	return []string(p), nil
}

// Glob expands a pattern into parts sorted lexically, so part1..partN keep
// their order.
type Glob string

func (g Glob) Parts() ([]string, error) {
	matches, err := filepath.Glob(string(g))
	if err != nil {
		return nil, fmt.Errorf("%w: bad glob %q: %v", ErrInvalidInput, string(g), err)
	}
	if len(matches) == 0 {
		return nil, &MissingFileError{Path: string(g), Err: os.ErrNotExist}
	}
	sort.Strings(matches)
	return matches, nil
}

// NewSource builds a source for the named strategy: "parts" (default),
// "glob" (first argument is a pattern) or "xlsx" (a single workbook).
func NewSource(kind string, args []string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "parts", "csv":
		return PartList(args), nil
	case "glob":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: glob source takes exactly one pattern, got %d", ErrInvalidInput, len(args))
		}
		return Glob(args[0]), nil
	case "xlsx", "excel":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: xlsx source takes exactly one workbook, got %d", ErrInvalidInput, len(args))
		}
		if !strings.EqualFold(filepath.Ext(args[0]), ".xlsx") {
			return nil, fmt.Errorf("%w: %s is not an .xlsx workbook", ErrInvalidInput, args[0])
		}
		return PartList(args), nil
	}
	return nil, fmt.Errorf("%w: unknown source %q (use parts, glob or xlsx)", ErrInvalidInput, kind)
}

// Load resolves src, reads all parts, decodes and cleans them.
func Load(ctx context.Context, src Source, opt Options) ([]Record, *Table, error) {
	parts, err := src.Parts()
	if err != nil {
		return nil, nil, err
	}
	t, err := LoadParts(ctx, parts, opt)
	if err != nil {
		return nil, nil, err
	}
	recs, err := t.Records(opt)
	if err != nil {
		return nil, nil, err
	}
	return Clean(recs, DefaultRequired...), t, nil
}

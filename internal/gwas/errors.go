package gwas

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingFile      = errors.New("input file not found")
	ErrSchemaMismatch   = errors.New("schema mismatch between parts")
	ErrMissingColumn    = errors.New("required column missing")
	ErrInsufficientData = errors.New("insufficient data to fit model")
	ErrEmptyTrend       = errors.New("trend has no points")
	ErrInvalidInput     = errors.New("invalid input")
)

// MissingFileError indicates a listed part cannot be opened.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing input file %s: %v", e.Path, e.Err)
}

func (e *MissingFileError) Is(target error) bool { return target == ErrMissingFile }

func (e *MissingFileError) Unwrap() error { return e.Err }

// SchemaMismatchError indicates a later part's header does not line up with
// the first part's header.
type SchemaMismatchError struct {
	Path     string
	Expected []string
	Got      []string
	Column   int // first differing column, 0-based; -1 when only the count differs
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Expected) != len(e.Got) {
		return fmt.Sprintf("schema mismatch in %s: expected %d columns, got %d", e.Path, len(e.Expected), len(e.Got))
	}
	if e.Column >= 0 {
		return fmt.Sprintf("schema mismatch in %s: column %d is %q, expected %q",
			e.Path, e.Column+1, e.Got[e.Column], e.Expected[e.Column])
	}
	return fmt.Sprintf("schema mismatch in %s: header %s", e.Path, strings.Join(e.Got, ","))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// MissingColumnError indicates a required column is absent from the header.
type MissingColumnError struct {
	Column Field
	Table  string
}

func (e *MissingColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("required column %q not found in %s", string(e.Column), e.Table)
	}
	return fmt.Sprintf("required column %q not found", string(e.Column))
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// InsufficientDataError is returned when a model is asked to fit on too few rows.
type InsufficientDataError struct {
	Rows      int
	Direction Direction
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot fit %s model on %d rows", e.Direction, e.Rows)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

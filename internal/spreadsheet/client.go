// Package spreadsheet adapts a remote tabular store (a spreadsheet workbook) for
// the services that mirror records into it.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSheetNotFound indicates that no sheet with the requested title or id exists.
	ErrSheetNotFound = errors.New("spreadsheet: sheet not found")
	// ErrInvalidRange indicates a malformed cell range or row span.
	ErrInvalidRange = errors.New("spreadsheet: invalid range")
)

// Client is the remote tabular-store capability.
type Client interface {
	// ReadRows returns every row of the sheet, header first. Rows may be ragged.
	ReadRows(ctx context.Context, sheet string) ([][]string, error)
	// AppendRows inserts rows below the last populated row of the sheet.
	AppendRows(ctx context.Context, sheet string, rows [][]string) error
	// UpdateRange overwrites the cells of target with values.
	UpdateRange(ctx context.Context, target Range, values [][]string) error
	// DeleteRows removes a contiguous span of rows from the sheet with the given id.
	DeleteRows(ctx context.Context, sheetID int64, span RowSpan) error
	// SheetID resolves the internal identifier of a sheet from its title.
	SheetID(ctx context.Context, sheet string) (int64, error)
}

// Range addresses a rectangle of cells. Rows and columns are 1-based and inclusive.
type Range struct {
	Sheet       string
	FirstRow    int
	LastRow     int
	FirstColumn int
	LastColumn  int
}

// RowRange addresses width cells of a single sheet row starting at column A.
func RowRange(sheet string, rowNumber, width int) Range {
	return Range{
		Sheet:       sheet,
		FirstRow:    rowNumber,
		LastRow:     rowNumber,
		FirstColumn: 1,
		LastColumn:  width,
	}
}

// Validate reports whether the range is addressable.
func (r Range) Validate() error {
	if strings.TrimSpace(r.Sheet) == "" {
		return fmt.Errorf("%w: sheet title required", ErrInvalidRange)
	}
	if r.FirstRow < 1 || r.LastRow < r.FirstRow {
		return fmt.Errorf("%w: rows %d..%d", ErrInvalidRange, r.FirstRow, r.LastRow)
	}
	if r.FirstColumn < 1 || r.LastColumn < r.FirstColumn {
		return fmt.Errorf("%w: columns %d..%d", ErrInvalidRange, r.FirstColumn, r.LastColumn)
	}
	return nil
}

// A1 renders the range in A1 notation, e.g. 'Sheet1'!A2:K2.
func (r Range) A1() string {
	return fmt.Sprintf("%s!%s%d:%s%d",
		QuoteSheetTitle(r.Sheet),
		ColumnName(r.FirstColumn), r.FirstRow,
		ColumnName(r.LastColumn), r.LastRow)
}

// RowSpan is a zero-based, end-exclusive span of sheet rows. Index 0 is the header row.
type RowSpan struct {
	Start int64
	End   int64
}

// Validate reports whether the span covers at least one row.
func (s RowSpan) Validate() error {
	if s.Start < 0 || s.End <= s.Start {
		return fmt.Errorf("%w: row span %d..%d", ErrInvalidRange, s.Start, s.End)
	}
	return nil
}

// QuoteSheetTitle quotes a sheet title for use in A1 notation.
func QuoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// ColumnName converts a 1-based column number into its letter name (1 -> A, 27 -> AA).
func ColumnName(column int) string {
	if column < 1 {
		return ""
	}
	var letters []byte
	for column > 0 {
		column--
		letters = append([]byte{byte('A' + column%26)}, letters...)
		column /= 26
	}
	return string(letters)
}

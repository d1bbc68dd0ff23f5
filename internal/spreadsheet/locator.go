package spreadsheet

import (
	"math"
	"strconv"
	"strings"
)

const (
	// HeaderRowNumber is the 1-based sheet row that holds column names.
	HeaderRowNumber = 1
	// FirstDataRowNumber is the 1-based sheet row of the first record.
	FirstDataRowNumber = HeaderRowNumber + 1
)

// RowRef identifies a data row by its position below the header.
type RowRef struct {
	index int
}

// DataRow returns a reference to the data row at the zero-based index below the header.
func DataRow(index int) RowRef {
	return RowRef{index: index}
}

// Index returns the zero-based position among data rows.
func (r RowRef) Index() int {
	return r.index
}

// Number returns the 1-based sheet row number used for range addressing.
func (r RowRef) Number() int {
	return r.index + FirstDataRowNumber
}

// SheetIndex returns the zero-based sheet row index, counting the header, used for row removal.
func (r RowRef) SheetIndex() int64 {
	return int64(r.Number() - 1)
}

// Criterion constrains one column of a row.
type Criterion struct {
	Column string
	Value  string
	Loose  bool
}

// EqualTo matches cells that are exactly value.
func EqualTo(column, value string) Criterion {
	return Criterion{Column: column, Value: value}
}

// LooselyEqualTo matches cells that are exactly value or hold the same number.
func LooselyEqualTo(column, value string) Criterion {
	return Criterion{Column: column, Value: value, Loose: true}
}

func (c Criterion) matches(cell string) bool {
	if cell == c.Value {
		return true
	}
	if !c.Loose {
		return false
	}
	left, ok := parseNumber(cell)
	if !ok {
		return false
	}
	right, ok := parseNumber(c.Value)
	if !ok {
		return false
	}
	return left == right
}

// Schema maps header names to column positions.
type Schema struct {
	header  []string
	columns map[string]int
}

// NewSchema resolves column positions from a header row. The first occurrence of a name wins.
func NewSchema(header []string) *Schema {
	columns := make(map[string]int, len(header))
	for index, name := range header {
		if _, seen := columns[name]; !seen {
			columns[name] = index
		}
	}
	return &Schema{
		header:  append([]string(nil), header...),
		columns: columns,
	}
}

// Index returns the column position of name, or -1 when the header lacks it.
func (s *Schema) Index(name string) int {
	if s == nil {
		return -1
	}
	index, ok := s.columns[name]
	if !ok {
		return -1
	}
	return index
}

// Cell returns the value of the named column in row, or "" when absent.
func (s *Schema) Cell(row []string, name string) string {
	value, _ := cellAt(row, s.Index(name))
	return value
}

// Matches reports whether header is identical to the header the schema was built from.
func (s *Schema) Matches(header []string) bool {
	if s == nil || len(s.header) != len(header) {
		return false
	}
	for index := range header {
		if s.header[index] != header[index] {
			return false
		}
	}
	return true
}

// Locate returns the topmost data row satisfying every criterion.
// A criterion on a column absent from the header never matches.
func (s *Schema) Locate(dataRows [][]string, criteria ...Criterion) (RowRef, bool) {
	if len(criteria) == 0 {
		return RowRef{}, false
	}
	indices := make([]int, len(criteria))
	for position, criterion := range criteria {
		indices[position] = s.Index(criterion.Column)
		if indices[position] < 0 {
			return RowRef{}, false
		}
	}
	for rowIndex, row := range dataRows {
		if rowMatches(row, indices, criteria) {
			return DataRow(rowIndex), true
		}
	}
	return RowRef{}, false
}

// MaxNumeric returns the largest finite number found in the named column, or 0.
// Empty and non-numeric cells count as 0.
func (s *Schema) MaxNumeric(dataRows [][]string, name string) float64 {
	index := s.Index(name)
	maximum := 0.0
	for _, row := range dataRows {
		cell, ok := cellAt(row, index)
		if !ok {
			continue
		}
		value, ok := parseNumber(cell)
		if ok && value > maximum {
			maximum = value
		}
	}
	return maximum
}

// LocateRow scans rows (header first) for the topmost data row satisfying every
// criterion. Column positions are resolved from the header on each call.
func LocateRow(rows [][]string, criteria ...Criterion) (RowRef, bool) {
	if len(rows) < 2 {
		return RowRef{}, false
	}
	return NewSchema(rows[0]).Locate(rows[1:], criteria...)
}

func rowMatches(row []string, indices []int, criteria []Criterion) bool {
	for position, criterion := range criteria {
		cell, ok := cellAt(row, indices[position])
		if !ok || !criterion.matches(cell) {
			return false
		}
	}
	return true
}

func cellAt(row []string, index int) (string, bool) {
	if index < 0 || index >= len(row) {
		return "", false
	}
	return row[index], true
}

func parseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

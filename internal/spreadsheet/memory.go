package spreadsheet

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is an in-process workbook implementing Client.
type MemoryClient struct {
	mu     sync.Mutex
	sheets map[string]*memorySheet
	nextID int64
}

type memorySheet struct {
	id   int64
	rows [][]string
}

// NewMemoryClient constructs an empty workbook.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{sheets: make(map[string]*memorySheet)}
}

// AddSheet creates a sheet, optionally seeded with a header row, and returns its id.
// Adding an existing title returns the existing id and leaves its rows untouched.
func (c *MemoryClient) AddSheet(title string, header ...string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sheets[title]; ok {
		return existing.id
	}
	sheet := &memorySheet{id: c.nextID}
	c.nextID++
	if len(header) > 0 {
		sheet.rows = append(sheet.rows, append([]string(nil), header...))
	}
	c.sheets[title] = sheet
	return sheet.id
}

// DropSheet removes the sheet with the given title. Its id is never reused.
func (c *MemoryClient) DropSheet(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sheets, title)
}

// Rows returns a copy of every row of the sheet, header first.
func (c *MemoryClient) Rows(title string) [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, ok := c.sheets[title]
	if !ok {
		return nil
	}
	return copyRows(sheet.rows)
}

func (c *MemoryClient) ReadRows(ctx context.Context, title string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, ok := c.sheets[title]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, title)
	}
	return copyRows(sheet.rows), nil
}

func (c *MemoryClient) AppendRows(ctx context.Context, title string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, ok := c.sheets[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, title)
	}
	sheet.rows = append(sheet.rows, copyRows(rows)...)
	return nil
}

func (c *MemoryClient) UpdateRange(ctx context.Context, target Range, values [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	width := target.LastColumn - target.FirstColumn + 1
	if len(values) > target.LastRow-target.FirstRow+1 {
		return fmt.Errorf("%w: %d rows exceed %s", ErrInvalidRange, len(values), target.A1())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, ok := c.sheets[target.Sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, target.Sheet)
	}
	for offset, rowValues := range values {
		if len(rowValues) > width {
			return fmt.Errorf("%w: %d columns exceed %s", ErrInvalidRange, len(rowValues), target.A1())
		}
		rowIndex := target.FirstRow - 1 + offset
		for len(sheet.rows) <= rowIndex {
			sheet.rows = append(sheet.rows, nil)
		}
		row := sheet.rows[rowIndex]
		for len(row) < target.FirstColumn-1+len(rowValues) {
			row = append(row, "")
		}
		copy(row[target.FirstColumn-1:], rowValues)
		sheet.rows[rowIndex] = row
	}
	return nil
}

func (c *MemoryClient) DeleteRows(ctx context.Context, sheetID int64, span RowSpan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := span.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sheet := range c.sheets {
		if sheet.id != sheetID {
			continue
		}
		if span.Start >= int64(len(sheet.rows)) {
			return fmt.Errorf("%w: row %d beyond sheet end", ErrInvalidRange, span.Start)
		}
		end := span.End
		if end > int64(len(sheet.rows)) {
			end = int64(len(sheet.rows))
		}
		sheet.rows = append(sheet.rows[:span.Start], sheet.rows[end:]...)
		return nil
	}
	return fmt.Errorf("%w: id %d", ErrSheetNotFound, sheetID)
}

func (c *MemoryClient) SheetID(ctx context.Context, title string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sheet, ok := c.sheets[title]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, title)
	}
	return sheet.id, nil
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	copied := make([][]string, len(rows))
	for index, row := range rows {
		copied[index] = append([]string(nil), row...)
	}
	return copied
}

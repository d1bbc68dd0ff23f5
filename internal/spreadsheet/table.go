package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	errMissingClient     = errors.New("spreadsheet: client required")
	errMissingSheetTitle = errors.New("spreadsheet: sheet title required")
)

// Table is a session over one sheet. It caches the resolved header schema and
// the sheet id; the schema is rebuilt whenever a read observes a different header.
type Table struct {
	client Client
	title  string

	mu           sync.Mutex
	schema       *Schema
	sheetID      int64
	sheetIDKnown bool
}

// NewTable binds a session to the sheet with the given title.
func NewTable(client Client, title string) (*Table, error) {
	if client == nil {
		return nil, errMissingClient
	}
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, errMissingSheetTitle
	}
	return &Table{client: client, title: trimmed}, nil
}

// Title returns the sheet title.
func (t *Table) Title() string {
	return t.title
}

// Invalidate drops the cached schema and sheet id.
func (t *Table) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.schema = nil
	t.sheetID = 0
	t.sheetIDKnown = false
}

// Snapshot reads every row of the sheet.
func (t *Table) Snapshot(ctx context.Context) (Snapshot, error) {
	rows, err := t.client.ReadRows(ctx, t.title)
	if err != nil {
		return Snapshot{}, err
	}
	if len(rows) == 0 {
		return Snapshot{schema: NewSchema(nil)}, nil
	}
	return Snapshot{schema: t.schemaFor(rows[0]), rows: rows[1:]}, nil
}

// Append adds one row at the bottom of the sheet.
func (t *Table) Append(ctx context.Context, values []string) error {
	return t.client.AppendRows(ctx, t.title, [][]string{values})
}

// Rewrite overwrites the referenced row starting at column A.
func (t *Table) Rewrite(ctx context.Context, ref RowRef, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no values", ErrInvalidRange)
	}
	target := RowRange(t.title, ref.Number(), len(values))
	return t.client.UpdateRange(ctx, target, [][]string{values})
}

// Remove deletes the referenced row, resolving the sheet id by title. A failed
// deletion drops the cached id; when the title now resolves to a different
// sheet the deletion is retried once against it.
func (t *Table) Remove(ctx context.Context, ref RowRef) error {
	sheetID, err := t.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	span := RowSpan{Start: ref.SheetIndex(), End: ref.SheetIndex() + 1}
	deleteErr := t.client.DeleteRows(ctx, sheetID, span)
	if deleteErr == nil {
		return nil
	}

	t.Invalidate()
	current, err := t.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	if current == sheetID {
		return deleteErr
	}
	return t.client.DeleteRows(ctx, current, span)
}

func (t *Table) schemaFor(header []string) *Schema {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.schema.Matches(header) {
		t.schema = NewSchema(header)
	}
	return t.schema
}

func (t *Table) resolveSheetID(ctx context.Context) (int64, error) {
	t.mu.Lock()
	if t.sheetIDKnown {
		sheetID := t.sheetID
		t.mu.Unlock()
		return sheetID, nil
	}
	t.mu.Unlock()

	sheetID, err := t.client.SheetID(ctx, t.title)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	t.sheetID = sheetID
	t.sheetIDKnown = true
	t.mu.Unlock()
	return sheetID, nil
}

// Snapshot is the state of a sheet at the time it was read.
type Snapshot struct {
	schema *Schema
	rows   [][]string
}

// Schema returns the header schema of the snapshot.
func (s Snapshot) Schema() *Schema {
	return s.schema
}

// Rows returns the data rows, excluding the header.
func (s Snapshot) Rows() [][]string {
	return s.rows
}

// Empty reports whether the sheet holds no data rows.
func (s Snapshot) Empty() bool {
	return len(s.rows) == 0
}

// Locate finds the topmost data row satisfying every criterion.
func (s Snapshot) Locate(criteria ...Criterion) (RowRef, bool) {
	return s.schema.Locate(s.rows, criteria...)
}

// MaxNumeric returns the largest number in the named column, or 0.
func (s Snapshot) MaxNumeric(column string) float64 {
	return s.schema.MaxNumeric(s.rows, column)
}

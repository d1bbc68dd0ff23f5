// Package calendar manages calendar entries stored directly in a spreadsheet sheet.
package calendar

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/serviceerr"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/spreadsheet"
	"go.uber.org/zap"
)

var (
	// ErrNotFound indicates that no row carries the requested id.
	ErrNotFound = errors.New("calendar: entry not found")
	// ErrMissingDetails indicates that the date or location is empty.
	ErrMissingDetails = errors.New("calendar: date and location required")

	errMissingTable = errors.New("calendar table is required")
)

const (
	opList   = "calendar.list"
	opCreate = "calendar.create"
	opUpdate = "calendar.update"
	opDelete = "calendar.delete"
)

// Service performs entry CRUD against the calendar sheet. Any authenticated
// user may edit any entry.
type Service struct {
	table  *spreadsheet.Table
	logger *zap.Logger

	// createMu serializes id assignment within this process.
	createMu sync.Mutex
}

// NewService binds the service to the calendar sheet.
func NewService(table *spreadsheet.Table, logger *zap.Logger) (*Service, error) {
	if table == nil {
		return nil, serviceerr.New("calendar.service.new", "missing_table", errMissingTable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{table: table, logger: logger}, nil
}

// List returns every entry in sheet order. Missing columns read as empty strings.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	snapshot, err := s.snapshot(ctx, opList)
	if err != nil {
		return nil, err
	}
	schema := snapshot.Schema()
	entries := make([]Entry, 0, len(snapshot.Rows()))
	for _, row := range snapshot.Rows() {
		entries = append(entries, Entry{
			ID:       schema.Cell(row, ColumnID),
			Date:     schema.Cell(row, ColumnDate),
			Location: schema.Cell(row, ColumnLocation),
			Notes:    schema.Cell(row, ColumnNotes),
		})
	}
	return entries, nil
}

// Create appends an entry whose id is one more than the largest numeric id in the sheet.
func (s *Service) Create(ctx context.Context, details Details) (Entry, error) {
	if s.table == nil {
		return Entry{}, serviceerr.New(opCreate, "missing_table", errMissingTable)
	}
	if !details.complete() {
		return Entry{}, serviceerr.New(opCreate, "missing_details", ErrMissingDetails)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	snapshot, err := s.snapshot(ctx, opCreate)
	if err != nil {
		return Entry{}, err
	}
	next := snapshot.MaxNumeric(ColumnID) + 1
	entry := Entry{
		ID:       strconv.FormatFloat(next, 'f', -1, 64),
		Date:     details.Date,
		Location: details.Location,
		Notes:    details.Notes,
	}
	if err := s.table.Append(ctx, entry.row()); err != nil {
		s.logError(opCreate, "sheet_write_failed", err, zap.String("entry_id", entry.ID))
		return Entry{}, serviceerr.New(opCreate, "sheet_write_failed", err)
	}
	return entry, nil
}

// Update rewrites the whole row of the entry with the given id.
func (s *Service) Update(ctx context.Context, id string, details Details) (Entry, error) {
	id = strings.TrimSpace(id)
	ref, err := s.locate(ctx, opUpdate, id)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{ID: id, Date: details.Date, Location: details.Location, Notes: details.Notes}
	if err := s.table.Rewrite(ctx, ref, entry.row()); err != nil {
		s.logError(opUpdate, "sheet_write_failed", err, zap.String("entry_id", id))
		return Entry{}, serviceerr.New(opUpdate, "sheet_write_failed", err)
	}
	return entry, nil
}

// Delete removes the row of the entry with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	ref, err := s.locate(ctx, opDelete, id)
	if err != nil {
		return err
	}
	if err := s.table.Remove(ctx, ref); err != nil {
		if errors.Is(err, spreadsheet.ErrSheetNotFound) {
			return serviceerr.New(opDelete, "sheet_not_found", err)
		}
		s.logError(opDelete, "sheet_write_failed", err, zap.String("entry_id", id))
		return serviceerr.New(opDelete, "sheet_write_failed", err)
	}
	return nil
}

func (s *Service) locate(ctx context.Context, operation, id string) (spreadsheet.RowRef, error) {
	if s.table == nil {
		return spreadsheet.RowRef{}, serviceerr.New(operation, "missing_table", errMissingTable)
	}
	if id == "" {
		return spreadsheet.RowRef{}, serviceerr.New(operation, "not_found", ErrNotFound)
	}
	snapshot, err := s.snapshot(ctx, operation)
	if err != nil {
		return spreadsheet.RowRef{}, err
	}
	if snapshot.Empty() {
		return spreadsheet.RowRef{}, serviceerr.New(operation, "empty_sheet", ErrNotFound)
	}
	ref, found := snapshot.Locate(spreadsheet.LooselyEqualTo(ColumnID, id))
	if !found {
		return spreadsheet.RowRef{}, serviceerr.New(operation, "not_found", ErrNotFound)
	}
	return ref, nil
}

func (s *Service) snapshot(ctx context.Context, operation string) (spreadsheet.Snapshot, error) {
	if s.table == nil {
		return spreadsheet.Snapshot{}, serviceerr.New(operation, "missing_table", errMissingTable)
	}
	snapshot, err := s.table.Snapshot(ctx)
	if err != nil {
		s.logError(operation, "sheet_read_failed", err)
		return spreadsheet.Snapshot{}, serviceerr.New(operation, "sheet_read_failed", err)
	}
	return snapshot, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attrs := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	logger.Error("calendar service error", attrs...)
}

package creators

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/spreadsheet"
)

const (
	// ColumnID holds the local creator id in the mirror sheet.
	ColumnID = "ID"
	// ColumnOwner holds the owner username in the mirror sheet.
	ColumnOwner = "USUÁRIO"

	mirrorTimestampLayout = "2006-01-02 15:04:05"
)

// MirrorHeader lists the mirror sheet columns in the order rows are written.
var MirrorHeader = []string{
	ColumnID,
	ColumnOwner,
	"DATA",
	"NOME",
	"SOBRENOME",
	"RESPONSÁVEL",
	"INSTAGRAM",
	"TIKTOK",
	"TELEFONE",
	"WHATSAPP",
	"OBS",
}

var errMissingTable = errors.New("creators: mirror table required")

// SheetMirror keeps creator rows in a spreadsheet. Rows are matched by ID and owner
// columns found through the header; values are written in MirrorHeader order.
type SheetMirror struct {
	table    *spreadsheet.Table
	location *time.Location
}

// NewSheetMirror binds the mirror to a sheet. Timestamps are rendered in location,
// or the local zone when location is nil.
func NewSheetMirror(table *spreadsheet.Table, location *time.Location) (*SheetMirror, error) {
	if table == nil {
		return nil, errMissingTable
	}
	if location == nil {
		location = time.Local
	}
	return &SheetMirror{table: table, location: location}, nil
}

// Append writes the creator as a new bottom row.
func (m *SheetMirror) Append(ctx context.Context, creator Creator) error {
	return m.table.Append(ctx, m.row(creator))
}

// Replace rewrites the row matching the creator's id and owner.
func (m *SheetMirror) Replace(ctx context.Context, creator Creator) (bool, error) {
	ref, found, err := m.locate(ctx, creator)
	if err != nil || !found {
		return false, err
	}
	if err := m.table.Rewrite(ctx, ref, m.row(creator)); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the row matching the creator's id and owner.
func (m *SheetMirror) Remove(ctx context.Context, creator Creator) (bool, error) {
	ref, found, err := m.locate(ctx, creator)
	if err != nil || !found {
		return false, err
	}
	if err := m.table.Remove(ctx, ref); err != nil {
		return false, err
	}
	return true, nil
}

func (m *SheetMirror) locate(ctx context.Context, creator Creator) (spreadsheet.RowRef, bool, error) {
	snapshot, err := m.table.Snapshot(ctx)
	if err != nil {
		return spreadsheet.RowRef{}, false, err
	}
	ref, found := snapshot.Locate(
		spreadsheet.LooselyEqualTo(ColumnID, strconv.FormatInt(creator.ID, 10)),
		spreadsheet.EqualTo(ColumnOwner, creator.Username),
	)
	return ref, found, nil
}

func (m *SheetMirror) row(creator Creator) []string {
	return []string{
		strconv.FormatInt(creator.ID, 10),
		creator.Username,
		creator.CreatedAt.In(m.location).Format(mirrorTimestampLayout),
		creator.FirstName,
		creator.LastName,
		creator.Guardian,
		creator.Instagram,
		creator.TikTok,
		creator.Phone,
		creator.WhatsApp,
		creator.Notes,
	}
}

package calendar

import "strings"

const (
	// ColumnID holds the entry identifier.
	ColumnID = "ID"
	// ColumnDate holds the free-form entry date.
	ColumnDate = "DATA"
	// ColumnLocation holds the entry location.
	ColumnLocation = "LOCALIZAÇÃO"
	// ColumnNotes holds optional notes.
	ColumnNotes = "NOTAS"
)

// Header lists the calendar sheet columns in the order rows are written.
var Header = []string{ColumnID, ColumnDate, ColumnLocation, ColumnNotes}

// Entry is one calendar row. The spreadsheet is its only store.
type Entry struct {
	ID       string `json:"id"`
	Date     string `json:"data"`
	Location string `json:"localizacao"`
	Notes    string `json:"notas"`
}

// Details carries the writable attributes of an entry.
type Details struct {
	Date     string
	Location string
	Notes    string
}

func (d Details) complete() bool {
	return strings.TrimSpace(d.Date) != "" && strings.TrimSpace(d.Location) != ""
}

func (e Entry) row() []string {
	return []string{e.ID, e.Date, e.Location, e.Notes}
}

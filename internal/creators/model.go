package creators

import (
	"strings"
	"time"
)

// Creator is a contact record owned by one user. The local table is authoritative;
// the spreadsheet holds a best-effort copy.
type Creator struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirstName string    `gorm:"column:nome;size:255" json:"nome"`
	LastName  string    `gorm:"column:sobrenome;size:255" json:"sobrenome"`
	Guardian  string    `gorm:"column:responsavel;size:255" json:"responsavel"`
	Instagram string    `gorm:"column:instagram;size:255" json:"instagram"`
	TikTok    string    `gorm:"column:tiktok;size:255" json:"tiktok"`
	Phone     string    `gorm:"column:telefone;size:64" json:"telefone"`
	WhatsApp  string    `gorm:"column:whatsapp;size:64" json:"whatsapp"`
	Notes     string    `gorm:"column:obs;type:text" json:"obs"`
	Username  string    `gorm:"column:username;size:190;not null;index:idx_creators_owner_created,priority:1" json:"username"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime;index:idx_creators_owner_created,priority:2" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Creator) TableName() string {
	return "creators"
}

// Fields carries the mutable attributes of a creator. Username is honored on create only.
type Fields struct {
	FirstName string
	LastName  string
	Guardian  string
	Instagram string
	TikTok    string
	Phone     string
	WhatsApp  string
	Notes     string
	Username  string
}

func (f Fields) applyTo(record Creator) Creator {
	record.FirstName = f.FirstName
	record.LastName = f.LastName
	record.Guardian = f.Guardian
	record.Instagram = f.Instagram
	record.TikTok = f.TikTok
	record.Phone = f.Phone
	record.WhatsApp = f.WhatsApp
	record.Notes = f.Notes
	return record
}

func (f Fields) columns() map[string]interface{} {
	return map[string]interface{}{
		"nome":        f.FirstName,
		"sobrenome":   f.LastName,
		"responsavel": f.Guardian,
		"instagram":   f.Instagram,
		"tiktok":      f.TikTok,
		"telefone":    f.Phone,
		"whatsapp":    f.WhatsApp,
		"obs":         f.Notes,
	}
}

// MirrorStatus describes what happened to the spreadsheet copy of a write.
type MirrorStatus string

const (
	// MirrorSynced means the spreadsheet reflects the write.
	MirrorSynced MirrorStatus = "synced"
	// MirrorNotFound means no spreadsheet row matched the record.
	MirrorNotFound MirrorStatus = "not_found"
	// MirrorFailed means the spreadsheet call failed.
	MirrorFailed MirrorStatus = "failed"
	// MirrorDisabled means no mirror is configured.
	MirrorDisabled MirrorStatus = "disabled"
)

// MirrorResult is the outcome of the best-effort spreadsheet write.
type MirrorResult struct {
	Status MirrorStatus
	Err    error
}

// Synced reports whether the spreadsheet reflects the write.
func (r MirrorResult) Synced() bool {
	return r.Status == MirrorSynced
}

// WriteOutcome pairs the committed local record with the mirror outcome.
// A WriteOutcome is only returned once the local write has committed.
type WriteOutcome struct {
	Creator Creator
	Mirror  MirrorResult
}

// Summary reports the size of the table and its most recent records.
type Summary struct {
	Total  int64     `json:"total"`
	Recent []Creator `json:"recent"`
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}

package users

import "strings"

// User is a registered account. Username is the owner key of every creator record.
type User struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FirstName    string `gorm:"column:first_name;size:190"`
	LastName     string `gorm:"column:last_name;size:190"`
	Username     string `gorm:"column:username;size:190;not null;uniqueIndex"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}

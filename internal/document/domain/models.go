package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusSigned   Status = "Signed"
	StatusRejected Status = "Rejected"
)

// Document is an uploaded PDF awaiting signatures. FileKey points at the
// original upload in blob storage; SignedKey is set if and only if the
// document is Signed, and points at the flattened artifact.
type Document struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID    snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Title      string       `gorm:"not null" json:"title"`
	FileName   string       `gorm:"not null" json:"file_name"`
	FileKey    string       `gorm:"not null" json:"-"`
	SignedKey  string       `json:"-"`
	Status     Status       `gorm:"not null;default:'Pending'" json:"status"`
	ShareToken string       `gorm:"index" json:"share_token,omitempty"`
	PageCount  int          `json:"page_count"`
	SizeBytes  int64        `json:"size_bytes"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

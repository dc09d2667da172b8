package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// PNGDataPrefix is the only accepted encoding for drawn signatures.
	PNGDataPrefix = "data:image/png;base64,"

	// MinSignatureDataLen filters out empty or placeholder payloads at
	// finalization time. Anything shorter cannot be a real PNG.
	MinSignatureDataLen = 100
)

// SignatureField is a placed signature box. X and Y are logical canvas
// coordinates (800-unit width); Width and Height share the same unit.
// UserID is set for owner-placed fields, SignerEmail/SignerName for guest
// ones. SignatureData holds the drawn PNG as a base64 data URL once signed.
type SignatureField struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	DocumentID    snowflake.ID `gorm:"not null;index" json:"document_id"`
	UserID        snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Page          int          `gorm:"not null" json:"page"`
	X             float64      `gorm:"not null" json:"x"`
	Y             float64      `gorm:"not null" json:"y"`
	Width         float64      `gorm:"not null" json:"width"`
	Height        float64      `gorm:"not null" json:"height"`
	SignatureData string       `gorm:"type:text" json:"signature_data,omitempty"`
	SignerEmail   string       `json:"signer_email,omitempty"`
	SignerName    string       `json:"signer_name,omitempty"`
	SignedAt      *time.Time   `json:"signed_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Signed reports whether the field carries an embeddable signature image.
func (f SignatureField) Signed() bool {
	return len(f.SignatureData) >= MinSignatureDataLen &&
		strings.HasPrefix(f.SignatureData, PNGDataPrefix)
}

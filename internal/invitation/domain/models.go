package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleSigner   Role = "Signer"
	RoleWitness  Role = "Witness"
	RoleApprover Role = "Approver"
	RoleViewer   Role = "Viewer"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleSigner, RoleWitness, RoleApprover, RoleViewer:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusRejected  Status = "Rejected"
)

// Invitation grants one guest, identified by a bearer token, role-scoped
// access to a single document until ExpiresAt.
type Invitation struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	DocumentID snowflake.ID `gorm:"not null;index" json:"document_id"`
	SenderID   snowflake.ID `gorm:"not null" json:"sender_id"`
	Email      string       `gorm:"not null" json:"email"`
	Name       string       `json:"name"`
	Role       Role         `gorm:"not null" json:"role"`
	Token      string       `gorm:"not null;index" json:"-"`
	Status     Status       `gorm:"not null;default:'Pending'" json:"status"`
	ExpiresAt  time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

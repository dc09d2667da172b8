package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records one action against a document. ActorType is "owner",
// "guest" or "system"; Actor carries the user ID or guest email.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	DocumentID snowflake.ID      `gorm:"not null;index" json:"document_id"`
	ActorType  string            `gorm:"not null" json:"actor_type"`
	Actor      string            `json:"actor"`
	Action     string            `gorm:"not null" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   string            `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	IPAddress  string            `json:"ip_address,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

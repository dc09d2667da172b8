package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	FindByShareToken(ctx context.Context, db *gorm.DB, token string) (*Document, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*Document, error)
	Update(ctx context.Context, db *gorm.DB, doc *Document) error

	// UpdateStatusIf flips the document status only when the current value
	// matches from. It reports whether a row actually changed, which lets
	// concurrent finalizers detect that they lost the race.
	UpdateStatusIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status) (bool, error)

	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error

	// MarkSigned atomically flips a pending document to Signed and records
	// the signed artifact key. It reports whether a row changed.
	MarkSigned(ctx context.Context, db *gorm.DB, id snowflake.ID, signedKey string) (bool, error)
	// Delete removes the document and all dependent rows (signature
	// fields, invitations, audit entries) atomically.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

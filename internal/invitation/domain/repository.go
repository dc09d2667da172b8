package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, inv *Invitation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invitation, error)
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*Invitation, error)
	ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]*Invitation, error)

	// FindPendingByEmail returns the unexpired pending invitation for the
	// given document and email, if any.
	FindPendingByEmail(ctx context.Context, db *gorm.DB, documentID snowflake.ID, email string, now time.Time) (*Invitation, error)

	// CountPendingUnexpired counts invitations that still block an
	// owner-initiated finalization.
	CountPendingUnexpired(ctx context.Context, db *gorm.DB, documentID snowflake.ID, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB, documentID snowflake.ID, status Status) (int64, error)

	// UpdateStatusIf flips a single invitation only when its current status
	// matches from, reporting whether a row changed.
	UpdateStatusIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status) (bool, error)

	// CompleteAllPending marks every pending invitation on the document
	// Completed. Used when the owner finalizes.
	CompleteAllPending(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error

	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error
}

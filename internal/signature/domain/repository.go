package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, field *SignatureField) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SignatureField, error)
	ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]*SignatureField, error)
	Update(ctx context.Context, db *gorm.DB, field *SignatureField) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error

	// DeleteForCaller removes only the caller's own fields: owner fields
	// match on userID, guest fields on signerEmail.
	DeleteForCaller(ctx context.Context, db *gorm.DB, documentID, userID snowflake.ID, signerEmail string) error
}

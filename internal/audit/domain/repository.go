package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]*AuditLog, error)
	DeleteByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error
}

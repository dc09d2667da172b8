package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, document_id, actor_type, actor, action, target_type, target_id,
			metadata, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.DocumentID,
		entry.ActorType,
		entry.Actor,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	err := db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Where("document_id = ?", documentID).
		Order("created_at desc, id desc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) DeleteByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM audit_logs WHERE document_id = ?`, documentID).Error
}

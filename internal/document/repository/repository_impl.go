package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/document/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO documents (id, owner_id, title, file_name, file_key, signed_key, status, share_token, page_count, size_bytes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.FileName,
		doc.FileKey,
		doc.SignedKey,
		doc.Status,
		doc.ShareToken,
		doc.PageCount,
		doc.SizeBytes,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, title, file_name, file_key, signed_key, status, share_token, page_count, size_bytes, created_at, updated_at
		 FROM documents WHERE id = ?`,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) FindByShareToken(ctx context.Context, db *gorm.DB, token string) (*domain.Document, error) {
	if token == "" {
		return nil, nil
	}
	var doc domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, title, file_name, file_key, signed_key, status, share_token, page_count, size_bytes, created_at, updated_at
		 FROM documents WHERE share_token = ?`,
		token,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Save(doc).Error
}

func (r *repo) UpdateStatusIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")}).Error
}

func (r *repo) MarkSigned(ctx context.Context, db *gorm.DB, id snowflake.ID, signedKey string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":     domain.StatusSigned,
			"signed_key": signedKey,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes the document together with its fields, invitations and
// audit entries. One transaction so a half-deleted document never survives.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			`DELETE FROM signature_fields WHERE document_id = ?`,
			`DELETE FROM invitations WHERE document_id = ?`,
			`DELETE FROM audit_logs WHERE document_id = ?`,
			`DELETE FROM documents WHERE id = ?`,
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

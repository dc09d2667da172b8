package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/signature/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, field *domain.SignatureField) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO signature_fields (id, document_id, user_id, page, x, y, width, height, signature_data, signer_email, signer_name, signed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		field.ID,
		field.DocumentID,
		field.UserID,
		field.Page,
		field.X,
		field.Y,
		field.Width,
		field.Height,
		field.SignatureData,
		field.SignerEmail,
		field.SignerName,
		field.SignedAt,
		field.CreatedAt,
		field.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SignatureField, error) {
	var field domain.SignatureField
	err := db.WithContext(ctx).Raw(
		`SELECT id, document_id, user_id, page, x, y, width, height, signature_data, signer_email, signer_name, signed_at, created_at, updated_at
		 FROM signature_fields WHERE id = ?`,
		id,
	).Scan(&field).Error
	if err != nil {
		return nil, err
	}
	if field.ID == 0 {
		return nil, nil
	}
	return &field, nil
}

func (r *repo) ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]*domain.SignatureField, error) {
	var fields []*domain.SignatureField
	err := db.WithContext(ctx).
		Model(&domain.SignatureField{}).
		Where("document_id = ?", documentID).
		Order("page asc, created_at asc, id asc").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, field *domain.SignatureField) error {
	return db.WithContext(ctx).Save(field).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM signature_fields WHERE id = ?`, id).Error
}

func (r *repo) DeleteByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM signature_fields WHERE document_id = ?`, documentID).Error
}

func (r *repo) DeleteForCaller(ctx context.Context, db *gorm.DB, documentID, userID snowflake.ID, signerEmail string) error {
	if userID != 0 {
		return db.WithContext(ctx).Exec(
			`DELETE FROM signature_fields WHERE document_id = ? AND user_id = ?`,
			documentID, userID,
		).Error
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM signature_fields WHERE document_id = ? AND signer_email = ?`,
		documentID, signerEmail,
	).Error
}

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/invitation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Invitation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invitations (id, document_id, sender_id, email, name, role, token, status, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.DocumentID,
		inv.SenderID,
		inv.Email,
		inv.Name,
		inv.Role,
		inv.Token,
		inv.Status,
		inv.ExpiresAt,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := db.WithContext(ctx).Raw(
		`SELECT id, document_id, sender_id, email, name, role, token, status, expires_at, created_at, updated_at
		 FROM invitations WHERE id = ?`,
		id,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invitation, error) {
	if token == "" {
		return nil, nil
	}
	var inv domain.Invitation
	err := db.WithContext(ctx).Raw(
		`SELECT id, document_id, sender_id, email, name, role, token, status, expires_at, created_at, updated_at
		 FROM invitations WHERE token = ?`,
		token,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) ListByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]*domain.Invitation, error) {
	var invs []*domain.Invitation
	err := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("document_id = ?", documentID).
		Order("created_at asc, id asc").
		Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *repo) FindPendingByEmail(ctx context.Context, db *gorm.DB, documentID snowflake.ID, email string, now time.Time) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := db.WithContext(ctx).Raw(
		`SELECT id, document_id, sender_id, email, name, role, token, status, expires_at, created_at, updated_at
		 FROM invitations
		 WHERE document_id = ? AND email = ? AND status = ? AND expires_at > ?`,
		documentID,
		email,
		domain.StatusPending,
		now,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) CountPendingUnexpired(ctx context.Context, db *gorm.DB, documentID snowflake.ID, now time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("document_id = ? AND status = ? AND expires_at > ?", documentID, domain.StatusPending, now).
		Count(&count).Error
	return count, err
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, documentID snowflake.ID, status domain.Status) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("document_id = ? AND status = ?", documentID, status).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateStatusIf(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CompleteAllPending(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("document_id = ? AND status = ?", documentID, domain.StatusPending).
		Updates(map[string]interface{}{"status": domain.StatusCompleted, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM invitations WHERE id = ?`, id).Error
}

func (r *repo) DeleteByDocument(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM invitations WHERE document_id = ?`, documentID).Error
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/document/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("document.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDocumentRequest) (domain.Document, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSpace(req.FileName)
	}
	if title == "" {
		return domain.Document{}, domain.ErrInvalidTitle
	}
	if req.FileKey == "" {
		return domain.Document{}, domain.ErrInvalidFile
	}

	token, err := newShareToken()
	if err != nil {
		return domain.Document{}, err
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:         s.genID.Generate(),
		OwnerID:    req.OwnerID,
		Title:      title,
		FileName:   req.FileName,
		FileKey:    req.FileKey,
		Status:     domain.StatusPending,
		ShareToken: token,
		PageCount:  req.PageCount,
		SizeBytes:  req.SizeBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &doc); err != nil {
		return domain.Document{}, err
	}

	return doc, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDocumentRequest) (domain.Document, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}

	return *doc, nil
}

func (s *Service) GetByShareToken(ctx context.Context, token string) (domain.Document, error) {
	doc, err := s.repo.FindByShareToken(ctx, s.db, strings.TrimSpace(token))
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	return *doc, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDocumentsRequest) (domain.ListDocumentsResponse, error) {
	items, err := s.repo.ListByOwner(ctx, s.db, req.OwnerID)
	if err != nil {
		return domain.ListDocumentsResponse{}, err
	}

	docs := make([]domain.Document, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		docs = append(docs, *item)
	}

	return domain.ListDocumentsResponse{Documents: docs}, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteDocumentRequest) (domain.Document, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	if doc.OwnerID != req.OwnerID {
		return domain.Document{}, domain.ErrNotOwner
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return domain.Document{}, err
	}

	s.log.Info("document deleted", zap.String("document_id", id.String()))
	return *doc, nil
}

func (s *Service) RotateShareToken(ctx context.Context, rawID string, ownerID snowflake.ID) (domain.Document, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	if doc.OwnerID != ownerID {
		return domain.Document{}, domain.ErrNotOwner
	}

	token, err := newShareToken()
	if err != nil {
		return domain.Document{}, err
	}

	doc.ShareToken = token
	doc.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, doc); err != nil {
		return domain.Document{}, err
	}

	return *doc, nil
}

func (s *Service) Reject(ctx context.Context, rawID string, ownerID snowflake.ID) (domain.Document, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	if doc.OwnerID != ownerID {
		return domain.Document{}, domain.ErrNotOwner
	}

	changed, err := s.repo.UpdateStatusIf(ctx, s.db, id, domain.StatusPending, domain.StatusRejected)
	if err != nil {
		return domain.Document{}, err
	}
	if !changed {
		return domain.Document{}, domain.ErrNotPending
	}

	doc.Status = domain.StatusRejected
	return *doc, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func newShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

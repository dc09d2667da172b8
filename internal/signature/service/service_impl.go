package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/coordinates"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/signature/domain"
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
	Docs  docdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	docs  docdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("signature.service"),
		genID: p.GenID,
		repo:  p.Repo,
		docs:  p.Docs,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateFieldRequest) (domain.SignatureField, error) {
	doc, err := s.editableDocument(ctx, req.DocumentID)
	if err != nil {
		return domain.SignatureField{}, err
	}

	if err := validGeometry(req.Page, req.X, req.Y, req.Width, req.Height); err != nil {
		return domain.SignatureField{}, err
	}

	now := time.Now().UTC()
	field := domain.SignatureField{
		ID:          s.genID.Generate(),
		DocumentID:  doc.ID,
		UserID:      req.UserID,
		Page:        req.Page,
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
		SignerEmail: strings.ToLower(strings.TrimSpace(req.SignerEmail)),
		SignerName:  strings.TrimSpace(req.SignerName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &field); err != nil {
		return domain.SignatureField{}, err
	}

	return field, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateFieldRequest) (domain.SignatureField, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.SignatureField{}, err
	}

	field, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SignatureField{}, err
	}
	if field == nil {
		return domain.SignatureField{}, domain.ErrNotFound
	}

	if _, err := s.editableDocument(ctx, field.DocumentID.String()); err != nil {
		return domain.SignatureField{}, err
	}

	if req.Page != nil {
		field.Page = *req.Page
	}
	if req.X != nil {
		field.X = *req.X
	}
	if req.Y != nil {
		field.Y = *req.Y
	}
	if req.Width != nil {
		field.Width = *req.Width
	}
	if req.Height != nil {
		field.Height = *req.Height
	}
	if req.SignatureData != nil {
		field.SignatureData = *req.SignatureData
		if field.SignatureData == "" {
			field.SignedAt = nil
		} else {
			now := time.Now().UTC()
			field.SignedAt = &now
		}
	}
	if req.SignerEmail != nil {
		field.SignerEmail = strings.ToLower(strings.TrimSpace(*req.SignerEmail))
	}
	if req.SignerName != nil {
		field.SignerName = strings.TrimSpace(*req.SignerName)
	}

	if err := validGeometry(field.Page, field.X, field.Y, field.Width, field.Height); err != nil {
		return domain.SignatureField{}, err
	}

	field.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, field); err != nil {
		return domain.SignatureField{}, err
	}

	return *field, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.SignatureField, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.SignatureField{}, err
	}

	field, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SignatureField{}, err
	}
	if field == nil {
		return domain.SignatureField{}, domain.ErrNotFound
	}
	return *field, nil
}

func (s *Service) ListByDocument(ctx context.Context, req domain.ListFieldsRequest) (domain.ListFieldsResponse, error) {
	docID, err := parseID(req.DocumentID)
	if err != nil {
		return domain.ListFieldsResponse{}, err
	}

	items, err := s.repo.ListByDocument(ctx, s.db, docID)
	if err != nil {
		return domain.ListFieldsResponse{}, err
	}

	fields := make([]domain.SignatureField, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		fields = append(fields, *item)
	}

	return domain.ListFieldsResponse{Fields: fields}, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	field, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if field == nil {
		return domain.ErrNotFound
	}

	if _, err := s.editableDocument(ctx, field.DocumentID.String()); err != nil {
		return err
	}

	return s.repo.Delete(ctx, s.db, id)
}

func (s *Service) ClearAll(ctx context.Context, rawDocID string, userID snowflake.ID, signerEmail string) error {
	doc, err := s.editableDocument(ctx, rawDocID)
	if err != nil {
		return err
	}
	return s.repo.DeleteForCaller(ctx, s.db, doc.ID, userID, strings.ToLower(strings.TrimSpace(signerEmail)))
}

// editableDocument loads the document and refuses edits once it has left
// Pending: Signed and Rejected documents are both frozen to field writes.
func (s *Service) editableDocument(ctx context.Context, rawID string) (*docdomain.Document, error) {
	docID, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.FindByID(ctx, s.db, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.Status == docdomain.StatusSigned {
		return nil, domain.ErrDocumentSigned
	}
	if doc.Status != docdomain.StatusPending {
		return nil, docdomain.ErrNotPending
	}
	return doc, nil
}

func validGeometry(page int, x, y, width, height float64) error {
	if page < 1 {
		return domain.ErrInvalidGeometry
	}
	if x < 0 || x > coordinates.LogicalWidth {
		return domain.ErrInvalidGeometry
	}
	if y < 0 || y > coordinates.MaxLogicalY {
		return domain.ErrInvalidGeometry
	}
	if width <= 0 || height <= 0 {
		return domain.ErrInvalidGeometry
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

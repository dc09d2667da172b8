package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/audit/domain"
	"github.com/securesign/securesign/internal/audit/masking"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" || entry.DocumentID == 0 {
		return
	}

	actorType := strings.TrimSpace(entry.ActorType)
	if actorType == "" {
		actorType = "system"
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "document"
	}

	row := domain.AuditLog{
		ID:         s.genID.Generate(),
		DocumentID: entry.DocumentID,
		ActorType:  actorType,
		Actor:      strings.TrimSpace(entry.Actor),
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(entry.TargetID),
		Metadata:   datatypes.JSONMap(masking.MaskTokens(entry.Metadata)),
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("document_id", entry.DocumentID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	docID, err := snowflake.ParseString(strings.TrimSpace(req.DocumentID))
	if err != nil || docID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidID
	}

	items, err := s.repo.ListByDocument(ctx, s.db, docID)
	if err != nil {
		return domain.ListResponse{}, err
	}

	logs := make([]domain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return domain.ListResponse{AuditLogs: logs}, nil
}

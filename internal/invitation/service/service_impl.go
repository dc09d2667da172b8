package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/config"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Invitations expire five days after they are sent.
const inviteTTL = 5 * 24 * time.Hour

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Docs   docdomain.Repository
	Email  email.Provider
}

type Service struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	docs  docdomain.Repository
	email email.Provider
}

func New(p Params) domain.Service {
	return &Service{
		cfg:   p.Config,
		db:    p.DB,
		log:   p.Log.Named("invitation.service"),
		genID: p.GenID,
		repo:  p.Repo,
		docs:  p.Docs,
		email: p.Email,
	}
}

func (s *Service) Invite(ctx context.Context, req domain.InviteRequest) (domain.Invitation, error) {
	doc, err := s.ownedDocument(ctx, req.DocumentID, req.OwnerID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if doc.Status == docdomain.StatusSigned {
		return domain.Invitation{}, domain.ErrDocumentSigned
	}

	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" || !strings.Contains(addr, "@") {
		return domain.Invitation{}, domain.ErrInvalidEmail
	}
	if !domain.ValidRole(req.Role) {
		return domain.Invitation{}, domain.ErrInvalidRole
	}

	now := time.Now().UTC()
	existing, err := s.repo.FindPendingByEmail(ctx, s.db, doc.ID, addr, now)
	if err != nil {
		return domain.Invitation{}, err
	}
	if existing != nil {
		return domain.Invitation{}, domain.ErrDuplicateActive
	}

	token, err := newToken()
	if err != nil {
		return domain.Invitation{}, err
	}

	inv := domain.Invitation{
		ID:         s.genID.Generate(),
		DocumentID: doc.ID,
		SenderID:   req.OwnerID,
		Email:      addr,
		Name:       strings.TrimSpace(req.Name),
		Role:       req.Role,
		Token:      token,
		Status:     domain.StatusPending,
		ExpiresAt:  now.Add(inviteTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &inv); err != nil {
		return domain.Invitation{}, err
	}

	// Delivery failures must not roll back the invitation; the owner can
	// re-share the link from the document view.
	link := fmt.Sprintf("%s/sign/%s?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), doc.ID.String(), token)
	if err := s.email.SendTemplate(ctx, []string{addr}, "invitation", map[string]interface{}{
		"inviter_name":   "The document owner",
		"document_title": doc.Title,
		"role":           string(inv.Role),
		"link":           link,
		"expires_at":     inv.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
	}); err != nil {
		s.log.Warn("invitation email failed",
			zap.String("document_id", doc.ID.String()),
			zap.String("email", addr),
			zap.Error(err),
		)
	}

	return inv, nil
}

func (s *Service) ListByDocument(ctx context.Context, req domain.ListInvitationsRequest) (domain.ListInvitationsResponse, error) {
	doc, err := s.ownedDocument(ctx, req.DocumentID, req.OwnerID)
	if err != nil {
		return domain.ListInvitationsResponse{}, err
	}

	items, err := s.repo.ListByDocument(ctx, s.db, doc.ID)
	if err != nil {
		return domain.ListInvitationsResponse{}, err
	}

	invs := make([]domain.Invitation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invs = append(invs, *item)
	}

	return domain.ListInvitationsResponse{Invitations: invs}, nil
}

func (s *Service) Revoke(ctx context.Context, req domain.RevokeRequest) error {
	doc, err := s.ownedDocument(ctx, req.DocumentID, req.OwnerID)
	if err != nil {
		return err
	}
	if doc.Status == docdomain.StatusSigned {
		return domain.ErrCannotRevokeSigned
	}

	invID, err := parseID(req.InvitationID)
	if err != nil {
		return err
	}

	inv, err := s.repo.FindByID(ctx, s.db, invID)
	if err != nil {
		return err
	}
	if inv == nil || inv.DocumentID != doc.ID {
		return domain.ErrNotFound
	}

	wasRejected := inv.Status == domain.StatusRejected
	if err := s.repo.Delete(ctx, s.db, invID); err != nil {
		return err
	}

	// Removing the last rejection clears the document's rejected state.
	if wasRejected && doc.Status == docdomain.StatusRejected {
		remaining, err := s.repo.CountByStatus(ctx, s.db, doc.ID, domain.StatusRejected)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := s.docs.UpdateStatusIf(ctx, s.db, doc.ID, docdomain.StatusRejected, docdomain.StatusPending); err != nil {
				return err
			}
			s.log.Info("document recovered from rejection", zap.String("document_id", doc.ID.String()))
		}
	}

	return nil
}

func (s *Service) Reject(ctx context.Context, req domain.RejectRequest) (domain.Invitation, error) {
	inv, err := s.repo.FindByToken(ctx, s.db, strings.TrimSpace(req.Token))
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv == nil {
		return domain.Invitation{}, domain.ErrNotFound
	}
	if inv.Expired(time.Now().UTC()) {
		return domain.Invitation{}, domain.ErrExpired
	}
	if inv.Status != domain.StatusPending {
		return domain.Invitation{}, domain.ErrAlreadyResponded
	}

	doc, err := s.docs.FindByID(ctx, s.db, inv.DocumentID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if doc == nil {
		return domain.Invitation{}, domain.ErrNotFound
	}
	if doc.Status == docdomain.StatusSigned {
		return domain.Invitation{}, domain.ErrDocumentSigned
	}
	if doc.Status != docdomain.StatusPending {
		return domain.Invitation{}, docdomain.ErrNotPending
	}

	changed, err := s.repo.UpdateStatusIf(ctx, s.db, inv.ID, domain.StatusPending, domain.StatusRejected)
	if err != nil {
		return domain.Invitation{}, err
	}
	if !changed {
		return domain.Invitation{}, domain.ErrAlreadyResponded
	}

	if err := s.docs.SetStatus(ctx, s.db, doc.ID, docdomain.StatusRejected); err != nil {
		return domain.Invitation{}, err
	}

	inv.Status = domain.StatusRejected
	return *inv, nil
}

func (s *Service) ownedDocument(ctx context.Context, rawID string, ownerID snowflake.ID) (*docdomain.Document, error) {
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
	if doc.OwnerID != ownerID {
		return nil, docdomain.ErrNotOwner
	}
	return doc, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

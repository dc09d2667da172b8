// Package access resolves who is acting on a document: the authenticated
// owner, or a guest presenting an invitation (or legacy share) token. All
// role checks flow through the capability table here so handlers never
// compare roles directly.
package access

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Kind string

const (
	KindOwner Kind = "owner"
	KindGuest Kind = "guest"
)

// Capability is the set of operations a caller may perform on a document.
type Capability struct {
	View       bool
	EditFields bool
	Finalize   bool
	Reject     bool
}

var ownerCapability = Capability{View: true, EditFields: true, Finalize: true, Reject: true}

var roleCapabilities = map[invdomain.Role]Capability{
	invdomain.RoleSigner:   {View: true, EditFields: true, Finalize: true, Reject: true},
	invdomain.RoleWitness:  {View: true, EditFields: true, Finalize: true, Reject: true},
	invdomain.RoleApprover: {View: true, EditFields: true, Finalize: true, Reject: true},
	invdomain.RoleViewer:   {View: true},
}

// ForRole returns the capability set for an invitation role. Unknown roles
// get no capabilities.
func ForRole(role invdomain.Role) Capability {
	return roleCapabilities[role]
}

type Caller struct {
	Kind       Kind
	UserID     snowflake.ID
	Role       invdomain.Role
	Email      string
	Name       string
	Invitation *invdomain.Invitation
	Capability Capability
}

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpired      = errors.New("token_expired")
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Invs invdomain.Repository
}

type Gate struct {
	db   *gorm.DB
	log  *zap.Logger
	invs invdomain.Repository
}

func NewGate(p Params) *Gate {
	return &Gate{
		db:   p.DB,
		log:  p.Log.Named("access.gate"),
		invs: p.Invs,
	}
}

// Resolve identifies the caller for a document. Owner sessions win over
// tokens; invitation tokens win over the document's legacy share token,
// which grants Signer access for links minted before roles existed.
func (g *Gate) Resolve(ctx context.Context, doc *docdomain.Document, userID snowflake.ID, token string) (Caller, error) {
	if doc == nil {
		return Caller{}, ErrForbidden
	}

	if userID != 0 && doc.OwnerID == userID {
		return Caller{
			Kind:       KindOwner,
			UserID:     userID,
			Capability: ownerCapability,
		}, nil
	}

	if token == "" {
		return Caller{}, ErrForbidden
	}

	inv, err := g.invs.FindByToken(ctx, g.db, token)
	if err != nil {
		return Caller{}, err
	}
	if inv != nil {
		if inv.DocumentID != doc.ID {
			return Caller{}, ErrInvalidToken
		}
		if inv.Status == invdomain.StatusPending && inv.Expired(time.Now().UTC()) {
			return Caller{}, ErrExpired
		}
		return Caller{
			Kind:       KindGuest,
			Role:       inv.Role,
			Email:      inv.Email,
			Name:       inv.Name,
			Invitation: inv,
			Capability: ForRole(inv.Role),
		}, nil
	}

	if doc.ShareToken != "" && token == doc.ShareToken {
		return Caller{
			Kind:       KindGuest,
			Role:       invdomain.RoleSigner,
			Capability: ForRole(invdomain.RoleSigner),
		}, nil
	}

	return Caller{}, ErrInvalidToken
}

var Module = fx.Module("access.gate",
	fx.Provide(NewGate),
)

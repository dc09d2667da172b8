package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/events"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
)

type inviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (s *Server) InviteGuest(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	inv, err := s.invsvc.Invite(ctx, invdomain.InviteRequest{
		DocumentID: c.Param("id"),
		OwnerID:    currentUserID(c),
		Email:      req.Email,
		Name:       req.Name,
		Role:       invdomain.Role(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: inv.DocumentID,
		ActorType:  "owner",
		Actor:      inv.SenderID.String(),
		Action:     "invitation.created",
		TargetType: "invitation",
		TargetID:   inv.ID.String(),
		Metadata: map[string]any{
			"email": inv.Email,
			"role":  string(inv.Role),
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.hub.Publish(inv.DocumentID.String(), events.Event{
		DocumentID: inv.DocumentID.String(),
		Type:       events.TypeInvited,
		Actor:      inv.SenderID.String(),
	})

	c.JSON(http.StatusCreated, inv)
}

func (s *Server) ListInvitations(c *gin.Context) {
	resp, err := s.invsvc.ListByDocument(c.Request.Context(), invdomain.ListInvitationsRequest{
		DocumentID: c.Param("id"),
		OwnerID:    currentUserID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RevokeInvitation(c *gin.Context) {
	ctx := c.Request.Context()
	documentID := c.Param("id")

	err := s.invsvc.Revoke(ctx, invdomain.RevokeRequest{
		DocumentID:   documentID,
		InvitationID: c.Param("invitationId"),
		OwnerID:      currentUserID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.docsvc.GetByID(ctx, docdomain.GetDocumentRequest{ID: documentID})
	if err == nil {
		s.auditsvc.Record(ctx, auditdomain.Entry{
			DocumentID: doc.ID,
			ActorType:  "owner",
			Actor:      currentUserID(c).String(),
			Action:     "invitation.revoked",
			TargetType: "invitation",
			TargetID:   c.Param("invitationId"),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
		s.hub.Publish(doc.ID.String(), events.Event{
			DocumentID: doc.ID.String(),
			Type:       events.TypeInviteRevoked,
			Actor:      currentUserID(c).String(),
			Status:     string(doc.Status),
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

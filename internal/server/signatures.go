package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/securesign/securesign/internal/access"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/events"
	"github.com/securesign/securesign/internal/finalize"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
)

type createFieldRequest struct {
	DocumentID  string  `json:"document_id"`
	Page        int     `json:"page"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	SignerEmail string  `json:"signer_email"`
	SignerName  string  `json:"signer_name"`
}

type updateFieldRequest struct {
	Page          *int     `json:"page"`
	X             *float64 `json:"x"`
	Y             *float64 `json:"y"`
	Width         *float64 `json:"width"`
	Height        *float64 `json:"height"`
	SignatureData *string  `json:"signature_data"`
	SignerEmail   *string  `json:"signer_email"`
	SignerName    *string  `json:"signer_name"`
}

// resolveEditor loads a document by ID and requires field-edit capability.
func (s *Server) resolveEditor(c *gin.Context, documentID string) (docdomain.Document, access.Caller, bool) {
	doc, err := s.docsvc.GetByID(c.Request.Context(), docdomain.GetDocumentRequest{ID: documentID})
	if err != nil {
		AbortWithError(c, err)
		return docdomain.Document{}, access.Caller{}, false
	}

	caller, err := s.gate.Resolve(c.Request.Context(), &doc, currentUserID(c), guestToken(c))
	if err != nil {
		AbortWithError(c, err)
		return docdomain.Document{}, access.Caller{}, false
	}
	if !caller.Capability.EditFields {
		AbortWithError(c, access.ErrForbidden)
		return docdomain.Document{}, access.Caller{}, false
	}
	return doc, caller, true
}

// canTouchField limits guests to fields addressed to them or not yet
// claimed; owners may touch anything on their document.
func canTouchField(caller access.Caller, field sigdomain.SignatureField) bool {
	if caller.Kind == access.KindOwner {
		return true
	}
	if field.SignerEmail == "" && field.UserID == 0 {
		return true
	}
	return caller.Email != "" && strings.EqualFold(field.SignerEmail, caller.Email)
}

func (s *Server) CreateField(c *gin.Context) {
	var req createFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	doc, caller, ok := s.resolveEditor(c, req.DocumentID)
	if !ok {
		return
	}

	create := sigdomain.CreateFieldRequest{
		DocumentID:  req.DocumentID,
		Page:        req.Page,
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
		SignerEmail: req.SignerEmail,
		SignerName:  req.SignerName,
	}
	if caller.Kind == access.KindOwner {
		create.UserID = caller.UserID
	} else {
		// Guests place fields as themselves regardless of the payload.
		create.SignerEmail = caller.Email
		if create.SignerName == "" {
			create.SignerName = caller.Name
		}
	}

	ctx := c.Request.Context()
	field, err := s.sigsvc.Create(ctx, create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor, actorType := callerIdentity(caller)
	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "field.created",
		TargetType: "signature_field",
		TargetID:   field.ID.String(),
		Metadata: map[string]any{
			"page": field.Page,
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.hub.Publish(doc.ID.String(), events.Event{
		DocumentID: doc.ID.String(),
		Type:       events.TypeFieldCreated,
		Actor:      actor,
		FieldID:    field.ID.String(),
	})

	c.JSON(http.StatusCreated, field)
}

func (s *Server) ListFields(c *gin.Context) {
	doc, caller, err := s.resolveDocument(c, "docId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !caller.Capability.View {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	resp, err := s.sigsvc.ListByDocument(c.Request.Context(), sigdomain.ListFieldsRequest{DocumentID: doc.ID.String()})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateField(c *gin.Context) {
	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	field, err := s.sigsvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, caller, ok := s.resolveEditor(c, field.DocumentID.String())
	if !ok {
		return
	}
	if !canTouchField(caller, field) {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	updated, err := s.sigsvc.Update(ctx, sigdomain.UpdateFieldRequest{
		ID:            c.Param("id"),
		Page:          req.Page,
		X:             req.X,
		Y:             req.Y,
		Width:         req.Width,
		Height:        req.Height,
		SignatureData: req.SignatureData,
		SignerEmail:   req.SignerEmail,
		SignerName:    req.SignerName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Landing an actual signature image is its own audit action; moving or
	// resizing a field is just an update.
	action := "field.updated"
	if req.SignatureData != nil && *req.SignatureData != "" {
		action = "field.signed"
	}

	actor, actorType := callerIdentity(caller)
	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     action,
		TargetType: "signature_field",
		TargetID:   updated.ID.String(),
		Metadata: map[string]any{
			"signed": updated.Signed(),
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.hub.Publish(doc.ID.String(), events.Event{
		DocumentID: doc.ID.String(),
		Type:       events.TypeFieldUpdated,
		Actor:      actor,
		FieldID:    updated.ID.String(),
	})

	c.JSON(http.StatusOK, updated)
}

func (s *Server) DeleteField(c *gin.Context) {
	field, err := s.sigsvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, caller, ok := s.resolveEditor(c, field.DocumentID.String())
	if !ok {
		return
	}
	if !canTouchField(caller, field) {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	if err := s.sigsvc.Delete(ctx, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	actor, actorType := callerIdentity(caller)
	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "field.deleted",
		TargetType: "signature_field",
		TargetID:   field.ID.String(),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	s.hub.Publish(doc.ID.String(), events.Event{
		DocumentID: doc.ID.String(),
		Type:       events.TypeFieldDeleted,
		Actor:      actor,
		FieldID:    field.ID.String(),
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ClearFields(c *gin.Context) {
	doc, caller, ok := s.resolveEditor(c, c.Param("docId"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	userID := caller.UserID
	email := ""
	if caller.Kind == access.KindGuest {
		userID = 0
		email = caller.Email
	}

	if err := s.sigsvc.ClearAll(ctx, doc.ID.String(), userID, email); err != nil {
		AbortWithError(c, err)
		return
	}

	actor, actorType := callerIdentity(caller)
	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "fields.cleared",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	s.hub.Publish(doc.ID.String(), events.Event{
		DocumentID: doc.ID.String(),
		Type:       events.TypeFieldsCleared,
		Actor:      actor,
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type finalizeRequest struct {
	DocumentID string `json:"document_id"`
}

func (s *Server) FinalizeDocument(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.engineFn.Finalize(c.Request.Context(), finalize.Request{
		DocumentID: req.DocumentID,
		UserID:     currentUserID(c),
		Token:      guestToken(c),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func callerIdentity(caller access.Caller) (actor, actorType string) {
	if caller.Kind == access.KindOwner {
		return caller.UserID.String(), "owner"
	}
	if caller.Email != "" {
		return caller.Email, "guest"
	}
	return "share-link", "guest"
}

package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/securesign/securesign/internal/access"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/events"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/pdfstamp"
	"github.com/securesign/securesign/internal/providers/storage"
	"go.uber.org/zap"
)

// maxUploadBytes bounds a single PDF upload.
const maxUploadBytes = 25 << 20

type documentAccess struct {
	Kind         string            `json:"kind"`
	Role         string            `json:"role,omitempty"`
	Capabilities map[string]bool   `json:"capabilities"`
	Document     docdomain.Document `json:"document"`
}

// resolveDocument loads the document from the :id route param and resolves
// the caller against it. Every guest-accessible route goes through here.
func (s *Server) resolveDocument(c *gin.Context, param string) (docdomain.Document, access.Caller, error) {
	doc, err := s.docsvc.GetByID(c.Request.Context(), docdomain.GetDocumentRequest{ID: c.Param(param)})
	if err != nil {
		return docdomain.Document{}, access.Caller{}, err
	}

	caller, err := s.gate.Resolve(c.Request.Context(), &doc, currentUserID(c), guestToken(c))
	if err != nil {
		return docdomain.Document{}, access.Caller{}, err
	}
	return doc, caller, nil
}

func (s *Server) UploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, docdomain.ErrInvalidFile)
		return
	}
	if header.Size > maxUploadBytes {
		AbortWithError(c, docdomain.ErrInvalidFile)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		AbortWithError(c, docdomain.ErrInvalidFile)
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, docdomain.ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil || int64(len(data)) > maxUploadBytes {
		AbortWithError(c, docdomain.ErrInvalidFile)
		return
	}

	pages, err := pdfstamp.Pages(data)
	if err != nil {
		AbortWithError(c, docdomain.ErrInvalidFile)
		return
	}

	ctx := c.Request.Context()
	fileKey := storage.NewKey(".pdf")
	if err := s.storage.Put(ctx, fileKey, bytes.NewReader(data)); err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.docsvc.Create(ctx, docdomain.CreateDocumentRequest{
		OwnerID:   currentUserID(c),
		Title:     c.PostForm("title"),
		FileName:  filepath.Base(header.Filename),
		FileKey:   fileKey,
		PageCount: len(pages),
		SizeBytes: int64(len(data)),
	})
	if err != nil {
		// The row never existed, so the blob is an orphan.
		_ = s.storage.Delete(ctx, fileKey)
		AbortWithError(c, err)
		return
	}

	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  "owner",
		Actor:      doc.OwnerID.String(),
		Action:     "document.uploaded",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		Metadata: map[string]any{
			"file_name":  doc.FileName,
			"page_count": doc.PageCount,
			"size_bytes": doc.SizeBytes,
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})

	c.JSON(http.StatusCreated, doc)
}

func (s *Server) ListDocuments(c *gin.Context) {
	resp, err := s.docsvc.List(c.Request.Context(), docdomain.ListDocumentsRequest{OwnerID: currentUserID(c)})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetDocument(c *gin.Context) {
	doc, caller, err := s.resolveDocument(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !caller.Capability.View {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	actor, actorType := callerIdentity(caller)
	s.auditsvc.Record(c.Request.Context(), auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "document.viewed",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, documentAccess{
		Kind: string(caller.Kind),
		Role: string(caller.Role),
		Capabilities: map[string]bool{
			"view":        caller.Capability.View,
			"edit_fields": caller.Capability.EditFields,
			"finalize":    caller.Capability.Finalize,
			"reject":      caller.Capability.Reject,
		},
		Document: doc,
	})
}

func (s *Server) GetDocumentByShareToken(c *gin.Context) {
	doc, err := s.docsvc.GetByShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := s.docsvc.Delete(ctx, docdomain.DeleteDocumentRequest{
		ID:      c.Param("id"),
		OwnerID: currentUserID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The rows are gone; sweep the blobs. A failure here leaves garbage,
	// not inconsistency, so it is logged only.
	if err := s.storage.Delete(ctx, doc.FileKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("failed to delete original blob", zap.Error(err))
	}
	if doc.SignedKey != "" {
		if err := s.storage.Delete(ctx, doc.SignedKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("failed to delete signed blob", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RotateShareToken(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := s.docsvc.RotateShareToken(ctx, c.Param("id"), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  "owner",
		Actor:      doc.OwnerID.String(),
		Action:     "document.shared",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, doc)
}

// RejectDocument handles both sides of a refusal: the owner rejecting their
// own pending document, and a guest declining via invitation token.
func (s *Server) RejectDocument(c *gin.Context) {
	doc, caller, err := s.resolveDocument(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !caller.Capability.Reject {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	actor, actorType := doc.OwnerID.String(), "owner"

	if caller.Kind == access.KindOwner {
		doc, err = s.docsvc.Reject(ctx, c.Param("id"), caller.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	} else {
		if caller.Invitation == nil {
			AbortWithError(c, access.ErrForbidden)
			return
		}
		if _, err := s.invsvc.Reject(ctx, invdomain.RejectRequest{Token: guestToken(c)}); err != nil {
			AbortWithError(c, err)
			return
		}
		doc.Status = docdomain.StatusRejected
		actor, actorType = caller.Email, "guest"
	}

	s.auditsvc.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "document.rejected",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	s.hub.Publish(doc.ID.String(), events.Event{
		DocumentID: doc.ID.String(),
		Type:       events.TypeRejected,
		Actor:      actor,
		Status:     string(docdomain.StatusRejected),
	})

	c.JSON(http.StatusOK, doc)
}

func (s *Server) DownloadDocument(c *gin.Context) {
	doc, caller, err := s.resolveDocument(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !caller.Capability.View {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	key := doc.FileKey
	name := doc.FileName
	version := "original"
	if doc.SignedKey != "" && c.Query("version") != "original" {
		key = doc.SignedKey
		name = signedFileName(doc.FileName)
		version = "signed"
	}

	actor, actorType := callerIdentity(caller)
	s.auditsvc.Record(c.Request.Context(), auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "document.downloaded",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		Metadata: map[string]any{
			"version": version,
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})

	rc, err := s.storage.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, ErrNotFound)
			return
		}
		AbortWithError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func signedFileName(original string) string {
	ext := filepath.Ext(original)
	return strings.TrimSuffix(original, ext) + ".signed" + ext
}

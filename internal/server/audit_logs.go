package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securesign/securesign/internal/access"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
)

// ListAuditLogs returns a document's trail, newest first. Owner only:
// guests never see each other's activity.
func (s *Server) ListAuditLogs(c *gin.Context) {
	doc, err := s.docsvc.GetByID(c.Request.Context(), docdomain.GetDocumentRequest{ID: c.Param("docId")})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if doc.OwnerID != currentUserID(c) {
		AbortWithError(c, access.ErrForbidden)
		return
	}

	resp, err := s.auditsvc.List(c.Request.Context(), auditdomain.ListRequest{DocumentID: doc.ID.String()})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

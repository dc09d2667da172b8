package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateDocumentRequest struct {
	OwnerID   snowflake.ID
	Title     string
	FileName  string
	FileKey   string
	PageCount int
	SizeBytes int64
}

type GetDocumentRequest struct {
	ID string
}

type ListDocumentsRequest struct {
	OwnerID snowflake.ID
}

type ListDocumentsResponse struct {
	Documents []Document `json:"documents"`
}

type DeleteDocumentRequest struct {
	ID      string
	OwnerID snowflake.ID
}

type Service interface {
	Create(context.Context, CreateDocumentRequest) (Document, error)
	GetByID(context.Context, GetDocumentRequest) (Document, error)
	GetByShareToken(ctx context.Context, token string) (Document, error)
	List(context.Context, ListDocumentsRequest) (ListDocumentsResponse, error)
	Delete(context.Context, DeleteDocumentRequest) (Document, error)

	// RotateShareToken replaces the legacy link-share token, invalidating
	// any previously distributed share links.
	RotateShareToken(ctx context.Context, id string, ownerID snowflake.ID) (Document, error)

	// Reject moves a pending document to Rejected.
	Reject(ctx context.Context, id string, ownerID snowflake.ID) (Document, error)
}

var (
	ErrInvalidTitle = errors.New("invalid_title")
	ErrInvalidFile  = errors.New("invalid_file")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
	ErrNotOwner     = errors.New("not_owner")
	ErrNotPending   = errors.New("document_not_pending")
)

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateFieldRequest struct {
	DocumentID  string
	UserID      snowflake.ID
	Page        int
	X           float64
	Y           float64
	Width       float64
	Height      float64
	SignerEmail string
	SignerName  string
}

type UpdateFieldRequest struct {
	ID            string
	Page          *int
	X             *float64
	Y             *float64
	Width         *float64
	Height        *float64
	SignatureData *string
	SignerEmail   *string
	SignerName    *string
}

type ListFieldsRequest struct {
	DocumentID string
}

type ListFieldsResponse struct {
	Fields []SignatureField `json:"fields"`
}

type Service interface {
	Create(context.Context, CreateFieldRequest) (SignatureField, error)
	Update(context.Context, UpdateFieldRequest) (SignatureField, error)
	GetByID(ctx context.Context, id string) (SignatureField, error)
	ListByDocument(context.Context, ListFieldsRequest) (ListFieldsResponse, error)
	Delete(ctx context.Context, id string) error

	// ClearAll removes the caller's own fields on the document. Owner
	// callers pass their user ID, guests their invitation email.
	ClearAll(ctx context.Context, documentID string, userID snowflake.ID, signerEmail string) error
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidGeometry = errors.New("invalid_geometry")
	ErrDocumentSigned  = errors.New("document_signed")
)

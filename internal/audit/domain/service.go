package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Entry struct {
	DocumentID snowflake.ID
	ActorType  string
	Actor      string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListRequest struct {
	DocumentID string
}

type ListResponse struct {
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record persists an audit entry best-effort: failures are logged and
	// swallowed so auditing never breaks the operation being audited.
	Record(ctx context.Context, entry Entry)

	// List returns a document's trail, newest first.
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
)

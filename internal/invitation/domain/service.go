package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type InviteRequest struct {
	DocumentID string
	OwnerID    snowflake.ID
	Email      string
	Name       string
	Role       Role
}

type ListInvitationsRequest struct {
	DocumentID string
	OwnerID    snowflake.ID
}

type ListInvitationsResponse struct {
	Invitations []Invitation `json:"invitations"`
}

type RevokeRequest struct {
	DocumentID   string
	InvitationID string
	OwnerID      snowflake.ID
}

type RejectRequest struct {
	Token string
}

type Service interface {
	// Invite creates a pending invitation and emails the guest a tokenized
	// link. At most one pending unexpired invitation may exist per
	// document and email.
	Invite(context.Context, InviteRequest) (Invitation, error)

	ListByDocument(context.Context, ListInvitationsRequest) (ListInvitationsResponse, error)

	// Revoke deletes an invitation. Removing the last rejected invitation
	// from a rejected document moves the document back to pending.
	Revoke(context.Context, RevokeRequest) error

	// Reject records a guest's refusal and marks the document rejected.
	Reject(context.Context, RejectRequest) (Invitation, error)
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrDuplicateActive    = errors.New("duplicate_active_invitation")
	ErrExpired            = errors.New("invitation_expired")
	ErrAlreadyResponded   = errors.New("already_responded")
	ErrDocumentSigned     = errors.New("document_signed")
	ErrCannotRevokeSigned = errors.New("cannot_revoke_signed_document")
)

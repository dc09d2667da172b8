package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/config"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	docrepository "github.com/securesign/securesign/internal/document/repository"
	"github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/invitation/repository"
	"github.com/securesign/securesign/internal/providers/email"
	"github.com/securesign/securesign/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	docs docdomain.Repository
	node *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&docdomain.Document{}, &domain.Invitation{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	docs := docrepository.Provide()
	svc := New(Params{
		Config: config.Config{FrontendURL: "http://localhost:5173"},
		DB:     dbConn,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Docs:   docs,
		Email:  &email.NoOpProvider{},
	})

	return &fixture{svc: svc, db: dbConn, docs: docs, node: node}
}

func (f *fixture) createDocument(t *testing.T, ownerID snowflake.ID) docdomain.Document {
	t.Helper()
	now := time.Now().UTC()
	doc := docdomain.Document{
		ID:        f.node.Generate(),
		OwnerID:   ownerID,
		Title:     "NDA",
		FileName:  "nda.pdf",
		FileKey:   "blob.pdf",
		Status:    docdomain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.docs.Insert(context.Background(), f.db, &doc); err != nil {
		t.Fatalf("insert document: %v", err)
	}
	return doc
}

func (f *fixture) document(t *testing.T, id snowflake.ID) docdomain.Document {
	t.Helper()
	doc, err := f.docs.FindByID(context.Background(), f.db, id)
	if err != nil || doc == nil {
		t.Fatalf("find document: %v", err)
	}
	return *doc
}

func TestInviteCreatesPendingInvitation(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	inv, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(),
		OwnerID:    42,
		Email:      "Guest@Example.com",
		Name:       "Guest",
		Role:       domain.RoleWitness,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if inv.Email != "guest@example.com" {
		t.Errorf("email = %q, want lowercased", inv.Email)
	}
	if inv.Token == "" {
		t.Error("invitation must carry a token")
	}
	if inv.Status != domain.StatusPending {
		t.Errorf("status = %q, want Pending", inv.Status)
	}

	ttl := time.Until(inv.ExpiresAt)
	if ttl < 4*24*time.Hour || ttl > 6*24*time.Hour {
		t.Errorf("expiry %v not around five days out", ttl)
	}
}

func TestInviteDuplicatePendingRejected(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	req := domain.InviteRequest{
		DocumentID: doc.ID.String(),
		OwnerID:    42,
		Email:      "guest@example.com",
		Role:       domain.RoleSigner,
	}
	if _, err := f.svc.Invite(context.Background(), req); err != nil {
		t.Fatalf("first invite: %v", err)
	}
	if _, err := f.svc.Invite(context.Background(), req); err != domain.ErrDuplicateActive {
		t.Fatalf("err = %v, want ErrDuplicateActive", err)
	}

	// A different address is fine.
	req.Email = "other@example.com"
	if _, err := f.svc.Invite(context.Background(), req); err != nil {
		t.Fatalf("second guest invite: %v", err)
	}
}

func TestInviteValidation(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	if _, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "not-an-email", Role: domain.RoleSigner,
	}); err != domain.ErrInvalidEmail {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}

	if _, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "g@example.com", Role: "Notary",
	}); err != domain.ErrInvalidRole {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}

	if _, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 9, Email: "g@example.com", Role: domain.RoleSigner,
	}); err != docdomain.ErrNotOwner {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestInviteOnSignedDocumentRejected(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)
	if _, err := f.docs.MarkSigned(context.Background(), f.db, doc.ID, "signed.pdf"); err != nil {
		t.Fatalf("mark signed: %v", err)
	}

	if _, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "g@example.com", Role: domain.RoleSigner,
	}); err != domain.ErrDocumentSigned {
		t.Fatalf("err = %v, want ErrDocumentSigned", err)
	}
}

func TestGuestRejectMarksDocumentRejected(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	inv, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "g@example.com", Role: domain.RoleSigner,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	rejected, err := f.svc.Reject(context.Background(), domain.RejectRequest{Token: inv.Token})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.StatusRejected {
		t.Errorf("invitation status = %q", rejected.Status)
	}
	if got := f.document(t, doc.ID); got.Status != docdomain.StatusRejected {
		t.Errorf("document status = %q, want Rejected", got.Status)
	}

	if _, err := f.svc.Reject(context.Background(), domain.RejectRequest{Token: inv.Token}); err != domain.ErrAlreadyResponded {
		t.Fatalf("second reject err = %v, want ErrAlreadyResponded", err)
	}
}

func TestGuestRejectRequiresPendingDocument(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	first, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "g@example.com", Role: domain.RoleSigner,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	second, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "h@example.com", Role: domain.RoleSigner,
	})
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}

	if _, err := f.svc.Reject(context.Background(), domain.RejectRequest{Token: first.Token}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// The document already left Pending; another guest cannot pile on.
	if _, err := f.svc.Reject(context.Background(), domain.RejectRequest{Token: second.Token}); err != docdomain.ErrNotPending {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}
	if got := f.document(t, doc.ID); got.Status != docdomain.StatusRejected {
		t.Errorf("document status = %q, want Rejected", got.Status)
	}
}

func TestRevokeLastRejectionRecoversDocument(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	inv, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "g@example.com", Role: domain.RoleSigner,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := f.svc.Reject(context.Background(), domain.RejectRequest{Token: inv.Token}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := f.svc.Revoke(context.Background(), domain.RevokeRequest{
		DocumentID:   doc.ID.String(),
		InvitationID: inv.ID.String(),
		OwnerID:      42,
	}); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if got := f.document(t, doc.ID); got.Status != docdomain.StatusPending {
		t.Errorf("document status = %q, want Pending after recovery", got.Status)
	}
}

func TestRevokeOnSignedDocumentRejected(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t, 42)

	inv, err := f.svc.Invite(context.Background(), domain.InviteRequest{
		DocumentID: doc.ID.String(), OwnerID: 42, Email: "g@example.com", Role: domain.RoleSigner,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := f.docs.MarkSigned(context.Background(), f.db, doc.ID, "signed.pdf"); err != nil {
		t.Fatalf("mark signed: %v", err)
	}

	err = f.svc.Revoke(context.Background(), domain.RevokeRequest{
		DocumentID:   doc.ID.String(),
		InvitationID: inv.ID.String(),
		OwnerID:      42,
	})
	if err != domain.ErrCannotRevokeSigned {
		t.Fatalf("err = %v, want ErrCannotRevokeSigned", err)
	}
}

package server

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/access"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	authdomain "github.com/securesign/securesign/internal/auth/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/providers/storage"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeAuthService struct {
	registerCalls int
	registerErr   error
	loginErr      error
	verifyUserID  snowflake.ID
}

func (f *fakeAuthService) Register(ctx context.Context, req authdomain.RegisterRequest) (authdomain.AuthResponse, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return authdomain.AuthResponse{}, f.registerErr
	}
	return authdomain.AuthResponse{
		Token: "token",
		User:  authdomain.User{ID: 200, Email: req.Email, Name: req.Name},
	}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (authdomain.AuthResponse, error) {
	if f.loginErr != nil {
		return authdomain.AuthResponse{}, f.loginErr
	}
	return authdomain.AuthResponse{Token: "token", User: authdomain.User{ID: 200, Email: req.Email}}, nil
}

func (f *fakeAuthService) Verify(ctx context.Context, token string) (snowflake.ID, error) {
	if f.verifyUserID == 0 {
		return 0, authdomain.ErrInvalidToken
	}
	return f.verifyUserID, nil
}

type fakeDocumentService struct {
	doc         docdomain.Document
	getErr      error
	rejectCalls int
}

func (f *fakeDocumentService) Create(ctx context.Context, req docdomain.CreateDocumentRequest) (docdomain.Document, error) {
	return docdomain.Document{
		ID:        f.doc.ID,
		OwnerID:   req.OwnerID,
		Title:     req.Title,
		FileName:  req.FileName,
		FileKey:   req.FileKey,
		Status:    docdomain.StatusPending,
		PageCount: req.PageCount,
		SizeBytes: req.SizeBytes,
	}, nil
}

func (f *fakeDocumentService) GetByID(ctx context.Context, req docdomain.GetDocumentRequest) (docdomain.Document, error) {
	if f.getErr != nil {
		return docdomain.Document{}, f.getErr
	}
	return f.doc, nil
}

func (f *fakeDocumentService) GetByShareToken(ctx context.Context, token string) (docdomain.Document, error) {
	if f.doc.ShareToken != token {
		return docdomain.Document{}, docdomain.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeDocumentService) List(ctx context.Context, req docdomain.ListDocumentsRequest) (docdomain.ListDocumentsResponse, error) {
	return docdomain.ListDocumentsResponse{Documents: []docdomain.Document{f.doc}}, nil
}

func (f *fakeDocumentService) Delete(ctx context.Context, req docdomain.DeleteDocumentRequest) (docdomain.Document, error) {
	if f.doc.OwnerID != req.OwnerID {
		return docdomain.Document{}, docdomain.ErrNotOwner
	}
	return f.doc, nil
}

func (f *fakeDocumentService) RotateShareToken(ctx context.Context, id string, ownerID snowflake.ID) (docdomain.Document, error) {
	doc := f.doc
	doc.ShareToken = "rotated"
	return doc, nil
}

func (f *fakeDocumentService) Reject(ctx context.Context, id string, ownerID snowflake.ID) (docdomain.Document, error) {
	f.rejectCalls++
	doc := f.doc
	doc.Status = docdomain.StatusRejected
	return doc, nil
}

type fakeInvitationService struct {
	invitation  invdomain.Invitation
	inviteErr   error
	rejectCalls int
	revokeCalls int
}

func (f *fakeInvitationService) Invite(ctx context.Context, req invdomain.InviteRequest) (invdomain.Invitation, error) {
	if f.inviteErr != nil {
		return invdomain.Invitation{}, f.inviteErr
	}
	inv := f.invitation
	inv.Email = req.Email
	inv.Role = req.Role
	inv.SenderID = req.OwnerID
	return inv, nil
}

func (f *fakeInvitationService) ListByDocument(ctx context.Context, req invdomain.ListInvitationsRequest) (invdomain.ListInvitationsResponse, error) {
	return invdomain.ListInvitationsResponse{Invitations: []invdomain.Invitation{f.invitation}}, nil
}

func (f *fakeInvitationService) Revoke(ctx context.Context, req invdomain.RevokeRequest) error {
	f.revokeCalls++
	return nil
}

func (f *fakeInvitationService) Reject(ctx context.Context, req invdomain.RejectRequest) (invdomain.Invitation, error) {
	f.rejectCalls++
	inv := f.invitation
	inv.Status = invdomain.StatusRejected
	return inv, nil
}

type fakeSignatureService struct {
	lastCreate sigdomain.CreateFieldRequest
	field      sigdomain.SignatureField
	clearCalls int
	lastClear  struct {
		userID snowflake.ID
		email  string
	}
}

func (f *fakeSignatureService) Create(ctx context.Context, req sigdomain.CreateFieldRequest) (sigdomain.SignatureField, error) {
	f.lastCreate = req
	return sigdomain.SignatureField{ID: 77, DocumentID: f.field.DocumentID, Page: req.Page, SignerEmail: req.SignerEmail}, nil
}

func (f *fakeSignatureService) Update(ctx context.Context, req sigdomain.UpdateFieldRequest) (sigdomain.SignatureField, error) {
	return f.field, nil
}

func (f *fakeSignatureService) GetByID(ctx context.Context, id string) (sigdomain.SignatureField, error) {
	return f.field, nil
}

func (f *fakeSignatureService) ListByDocument(ctx context.Context, req sigdomain.ListFieldsRequest) (sigdomain.ListFieldsResponse, error) {
	return sigdomain.ListFieldsResponse{Fields: []sigdomain.SignatureField{f.field}}, nil
}

func (f *fakeSignatureService) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeSignatureService) ClearAll(ctx context.Context, documentID string, userID snowflake.ID, signerEmail string) error {
	f.clearCalls++
	f.lastClear.userID = userID
	f.lastClear.email = signerEmail
	return nil
}

type fakeAuditService struct {
	entries []auditdomain.Entry
}

func (f *fakeAuditService) Record(ctx context.Context, entry auditdomain.Entry) {
	f.entries = append(f.entries, entry)
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	return auditdomain.ListResponse{}, nil
}

type fakeStorageProvider struct {
	blobs map[string][]byte
}

func (f *fakeStorageProvider) Put(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.blobs == nil {
		f.blobs = map[string][]byte{}
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeStorageProvider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorageProvider) Delete(ctx context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

type fakeInvitationRepo struct {
	invdomain.Repository
	byToken map[string]*invdomain.Invitation
}

func (f *fakeInvitationRepo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*invdomain.Invitation, error) {
	return f.byToken[token], nil
}

func newTestGate(invs map[string]*invdomain.Invitation) *access.Gate {
	return access.NewGate(access.Params{
		Log:  zap.NewNop(),
		Invs: &fakeInvitationRepo{byToken: invs},
	})
}

func guestInvitation(docID snowflake.ID, token string, role invdomain.Role) *invdomain.Invitation {
	return &invdomain.Invitation{
		ID:         5,
		DocumentID: docID,
		Email:      "guest@example.com",
		Name:       "Guest",
		Role:       role,
		Token:      token,
		Status:     invdomain.StatusPending,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

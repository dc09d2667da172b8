package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/securesign/securesign/internal/auth/domain"
	"github.com/securesign/securesign/internal/config"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/events"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, srv *Server) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if srv.log == nil {
		srv.log = zap.NewNop()
	}
	if srv.hub == nil {
		srv.hub = events.NewHub()
	}
	if srv.auditsvc == nil {
		srv.auditsvc = &fakeAuditService{}
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	srv.engine = router
	srv.RegisterRoutes()
	return router
}

func doJSON(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterReturnsCreated(t *testing.T) {
	authSvc := &fakeAuthService{}
	router := newTestServer(t, &Server{cfg: config.Config{}, authsvc: authSvc, gate: newTestGate(nil)})

	resp := doJSON(router, http.MethodPost, "/auth/register", `{"email":"a@example.com","name":"A","password":"longenough"}`, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.Code)
	}
	if authSvc.registerCalls != 1 {
		t.Fatalf("register calls = %d", authSvc.registerCalls)
	}
}

func TestRegisterEmailTakenMapsToConflict(t *testing.T) {
	authSvc := &fakeAuthService{registerErr: authdomain.ErrEmailTaken}
	router := newTestServer(t, &Server{authsvc: authSvc, gate: newTestGate(nil)})

	resp := doJSON(router, http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"longenough"}`, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Type != "conflict" {
		t.Errorf("error type = %q", body.Error.Type)
	}
}

func TestLoginInvalidCredentialsReturns401(t *testing.T) {
	authSvc := &fakeAuthService{loginErr: authdomain.ErrInvalidCredentials}
	router := newTestServer(t, &Server{authsvc: authSvc, gate: newTestGate(nil)})

	resp := doJSON(router, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"wrong"}`, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestGetDocumentWithWitnessToken(t *testing.T) {
	doc := docdomain.Document{ID: 100, OwnerID: 1, Title: "NDA", Status: docdomain.StatusPending}
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-witness": guestInvitation(100, "tok-witness", invdomain.RoleWitness),
	})
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: doc},
		gate:    gate,
	})

	resp := doJSON(router, http.MethodGet, "/api/docs/100?token=tok-witness", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}

	var body documentAccess
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Kind != "guest" || body.Role != "Witness" {
		t.Errorf("kind=%q role=%q", body.Kind, body.Role)
	}
	if !body.Capabilities["finalize"] {
		t.Error("witness should be able to finalize")
	}
}

func TestGetDocumentExpiredTokenReturns410(t *testing.T) {
	inv := guestInvitation(100, "tok-old", invdomain.RoleSigner)
	inv.ExpiresAt = time.Now().Add(-time.Hour)
	gate := newTestGate(map[string]*invdomain.Invitation{"tok-old": inv})
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1}},
		gate:    gate,
	})

	resp := doJSON(router, http.MethodGet, "/api/docs/100?token=tok-old", "", nil)
	if resp.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", resp.Code)
	}
}

func TestGetDocumentWithoutCredentialsReturns403(t *testing.T) {
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1}},
		gate:    newTestGate(nil),
	})

	resp := doJSON(router, http.MethodGet, "/api/docs/100", "", nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}

func TestCreateFieldGuestIsPinnedToOwnEmail(t *testing.T) {
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-signer": guestInvitation(100, "tok-signer", invdomain.RoleSigner),
	})
	sigSvc := &fakeSignatureService{field: sigdomain.SignatureField{ID: 77, DocumentID: 100}}
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1, Status: docdomain.StatusPending}},
		sigsvc:  sigSvc,
		gate:    gate,
	})

	body := `{"document_id":"100","page":1,"x":50,"y":60,"width":120,"height":40,"signer_email":"someone-else@example.com"}`
	resp := doJSON(router, http.MethodPost, "/api/signatures?token=tok-signer", body, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
	if sigSvc.lastCreate.SignerEmail != "guest@example.com" {
		t.Errorf("signer email = %q, want invitation email", sigSvc.lastCreate.SignerEmail)
	}
	if sigSvc.lastCreate.UserID != 0 {
		t.Error("guest fields must not carry a user id")
	}
}

func TestCreateFieldViewerForbidden(t *testing.T) {
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-viewer": guestInvitation(100, "tok-viewer", invdomain.RoleViewer),
	})
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1}},
		sigsvc:  &fakeSignatureService{},
		gate:    gate,
	})

	body := `{"document_id":"100","page":1,"x":50,"y":60,"width":120,"height":40}`
	resp := doJSON(router, http.MethodPost, "/api/signatures?token=tok-viewer", body, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}

func TestClearFieldsGuestScopedToOwnEmail(t *testing.T) {
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-signer": guestInvitation(100, "tok-signer", invdomain.RoleSigner),
	})
	sigSvc := &fakeSignatureService{field: sigdomain.SignatureField{ID: 77, DocumentID: 100}}
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1, Status: docdomain.StatusPending}},
		sigsvc:  sigSvc,
		gate:    gate,
	})

	resp := doJSON(router, http.MethodDelete, "/api/signatures/all/100?token=tok-signer", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if sigSvc.clearCalls != 1 || sigSvc.lastClear.email != "guest@example.com" || sigSvc.lastClear.userID != 0 {
		t.Errorf("clear = %+v calls=%d", sigSvc.lastClear, sigSvc.clearCalls)
	}
}

func TestGetDocumentRecordsViewAudit(t *testing.T) {
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-viewer": guestInvitation(100, "tok-viewer", invdomain.RoleViewer),
	})
	auditSvc := &fakeAuditService{}
	router := newTestServer(t, &Server{
		authsvc:  &fakeAuthService{},
		docsvc:   &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1}},
		auditsvc: auditSvc,
		gate:     gate,
	})

	resp := doJSON(router, http.MethodGet, "/api/docs/100?token=tok-viewer", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != "document.viewed" {
		t.Fatalf("audit entries = %+v", auditSvc.entries)
	}
	if auditSvc.entries[0].ActorType != "guest" || auditSvc.entries[0].Actor != "guest@example.com" {
		t.Errorf("actor = %q/%q", auditSvc.entries[0].ActorType, auditSvc.entries[0].Actor)
	}
}

func TestRotateShareTokenRecordsShareAudit(t *testing.T) {
	auditSvc := &fakeAuditService{}
	router := newTestServer(t, &Server{
		authsvc:  &fakeAuthService{verifyUserID: 42},
		docsvc:   &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 42}},
		auditsvc: auditSvc,
		gate:     newTestGate(nil),
	})

	resp := doJSON(router, http.MethodPost, "/api/docs/share/100", "{}", map[string]string{"Authorization": "Bearer token"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != "document.shared" {
		t.Fatalf("audit entries = %+v", auditSvc.entries)
	}
}

func TestDownloadDocumentRecordsAudit(t *testing.T) {
	store := &fakeStorageProvider{blobs: map[string][]byte{"orig.pdf": []byte("%PDF-1.4")}}
	auditSvc := &fakeAuditService{}
	router := newTestServer(t, &Server{
		authsvc:  &fakeAuthService{verifyUserID: 1},
		docsvc:   &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1, FileName: "nda.pdf", FileKey: "orig.pdf"}},
		auditsvc: auditSvc,
		storage:  store,
		gate:     newTestGate(nil),
	})

	resp := doJSON(router, http.MethodGet, "/api/docs/download/100", "", map[string]string{"Authorization": "Bearer token"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != "document.downloaded" {
		t.Fatalf("audit entries = %+v", auditSvc.entries)
	}
	if got := auditSvc.entries[0].Metadata["version"]; got != "original" {
		t.Errorf("version = %v", got)
	}
}

func TestUpdateFieldSignatureDataRecordsSignAudit(t *testing.T) {
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-signer": guestInvitation(100, "tok-signer", invdomain.RoleSigner),
	})
	now := time.Now()
	sigSvc := &fakeSignatureService{field: sigdomain.SignatureField{
		ID: 77, DocumentID: 100, SignerEmail: "guest@example.com", SignedAt: &now,
	}}
	auditSvc := &fakeAuditService{}
	srv := &Server{
		authsvc:  &fakeAuthService{},
		docsvc:   &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1, Status: docdomain.StatusPending}},
		sigsvc:   sigSvc,
		auditsvc: auditSvc,
		gate:     gate,
	}
	router := newTestServer(t, srv)

	resp := doJSON(router, http.MethodPut, "/api/signatures/77?token=tok-signer",
		`{"signature_data":"data:image/png;base64,AAAA"}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != "field.signed" {
		t.Fatalf("audit entries = %+v", auditSvc.entries)
	}

	// A plain move stays a generic update.
	resp = doJSON(router, http.MethodPut, "/api/signatures/77?token=tok-signer", `{"x":120}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if len(auditSvc.entries) != 2 || auditSvc.entries[1].Action != "field.updated" {
		t.Fatalf("audit entries = %+v", auditSvc.entries)
	}
}

func TestRejectDocumentAsOwner(t *testing.T) {
	docSvc := &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 42, Status: docdomain.StatusPending}}
	auditSvc := &fakeAuditService{}
	router := newTestServer(t, &Server{
		authsvc:  &fakeAuthService{verifyUserID: 42},
		docsvc:   docSvc,
		auditsvc: auditSvc,
		gate:     newTestGate(nil),
	})

	resp := doJSON(router, http.MethodPost, "/api/docs/reject/100", "{}", map[string]string{"Authorization": "Bearer token"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if docSvc.rejectCalls != 1 {
		t.Fatalf("reject calls = %d", docSvc.rejectCalls)
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != "document.rejected" {
		t.Errorf("audit entries = %+v", auditSvc.entries)
	}
}

func TestRejectDocumentAsGuest(t *testing.T) {
	invSvc := &fakeInvitationService{invitation: *guestInvitation(100, "tok-signer", invdomain.RoleSigner)}
	gate := newTestGate(map[string]*invdomain.Invitation{
		"tok-signer": guestInvitation(100, "tok-signer", invdomain.RoleSigner),
	})
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1, Status: docdomain.StatusPending}},
		invsvc:  invSvc,
		gate:    gate,
	})

	resp := doJSON(router, http.MethodPost, "/api/docs/reject/100?token=tok-signer", "{}", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if invSvc.rejectCalls != 1 {
		t.Fatalf("invitation reject calls = %d", invSvc.rejectCalls)
	}
}

func TestListAuditLogsRequiresOwner(t *testing.T) {
	router := newTestServer(t, &Server{
		authsvc:  &fakeAuthService{verifyUserID: 99},
		docsvc:   &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 1}},
		auditsvc: &fakeAuditService{},
		gate:     newTestGate(nil),
	})

	resp := doJSON(router, http.MethodGet, "/api/audit/100", "", map[string]string{"Authorization": "Bearer token"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}

func TestListDocumentsRequiresAuth(t *testing.T) {
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{},
		docsvc:  &fakeDocumentService{},
		gate:    newTestGate(nil),
	})

	resp := doJSON(router, http.MethodGet, "/api/docs", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestInviteGuestReturnsCreated(t *testing.T) {
	invSvc := &fakeInvitationService{invitation: invdomain.Invitation{ID: 5, DocumentID: 100}}
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{verifyUserID: 42},
		invsvc:  invSvc,
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 42}},
		gate:    newTestGate(nil),
	})

	resp := doJSON(router, http.MethodPost, "/api/docs/invite/100",
		`{"email":"guest@example.com","name":"Guest","role":"Witness"}`,
		map[string]string{"Authorization": "Bearer token"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
}

func TestInviteDuplicateMapsToConflict(t *testing.T) {
	invSvc := &fakeInvitationService{inviteErr: invdomain.ErrDuplicateActive}
	router := newTestServer(t, &Server{
		authsvc: &fakeAuthService{verifyUserID: 42},
		invsvc:  invSvc,
		docsvc:  &fakeDocumentService{doc: docdomain.Document{ID: 100, OwnerID: 42}},
		gate:    newTestGate(nil),
	})

	resp := doJSON(router, http.MethodPost, "/api/docs/invite/100",
		`{"email":"guest@example.com","role":"Signer"}`,
		map[string]string{"Authorization": "Bearer token"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
}

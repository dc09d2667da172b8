// Package finalize implements the one-way flattening of signed fields into
// a new immutable PDF artifact, together with the invitation and document
// state transitions that come with it.
package finalize

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/access"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	"github.com/securesign/securesign/internal/events"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	"github.com/securesign/securesign/internal/pdfstamp"
	"github.com/securesign/securesign/internal/providers/storage"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNothingToSign       = errors.New("nothing_to_sign")
	ErrSourceFetchFailed   = errors.New("source_fetch_failed")
	ErrActiveGuestsPending = errors.New("active_guests_pending")
)

const (
	skipReasonInvalidImage = "invalid_image"
	skipReasonInvalidPage  = "invalid_page_index"
)

type Request struct {
	DocumentID string
	UserID     snowflake.ID
	Token      string
	IPAddress  string
	UserAgent  string
}

type SkippedField struct {
	FieldID string `json:"field_id"`
	Reason  string `json:"reason"`
}

type Result struct {
	Document      docdomain.Document `json:"document"`
	EmbeddedCount int                `json:"embedded_count"`
	SkippedFields []SkippedField     `json:"skipped_fields,omitempty"`
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Gate    *access.Gate
	Docs    docdomain.Repository
	Invs    invdomain.Repository
	Fields  sigdomain.Repository
	Storage storage.Provider
	Audit   auditdomain.Service
	Events  *events.Hub
}

type Engine struct {
	db      *gorm.DB
	log     *zap.Logger
	gate    *access.Gate
	docs    docdomain.Repository
	invs    invdomain.Repository
	fields  sigdomain.Repository
	storage storage.Provider
	audit   auditdomain.Service
	events  *events.Hub
}

func New(p Params) *Engine {
	return &Engine{
		db:      p.DB,
		log:     p.Log.Named("finalize.engine"),
		gate:    p.Gate,
		docs:    p.Docs,
		invs:    p.Invs,
		fields:  p.Fields,
		storage: p.Storage,
		audit:   p.Audit,
		events:  p.Events,
	}
}

// Finalize runs the embed pipeline. Nothing is persisted until the whole
// loop succeeds; a partially embedded document can never be observed.
func (e *Engine) Finalize(ctx context.Context, req Request) (Result, error) {
	docID, err := snowflake.ParseString(strings.TrimSpace(req.DocumentID))
	if err != nil || docID == 0 {
		return Result{}, docdomain.ErrInvalidID
	}

	doc, err := e.docs.FindByID(ctx, e.db, docID)
	if err != nil {
		return Result{}, err
	}
	if doc == nil {
		return Result{}, docdomain.ErrNotFound
	}

	caller, err := e.gate.Resolve(ctx, doc, req.UserID, req.Token)
	if err != nil {
		return Result{}, err
	}
	if !caller.Capability.Finalize {
		return Result{}, access.ErrForbidden
	}

	if doc.Status != docdomain.StatusPending {
		return Result{}, docdomain.ErrNotPending
	}

	now := time.Now().UTC()
	if caller.Kind == access.KindOwner {
		// The owner may not short-circuit guests who can still sign.
		pending, err := e.invs.CountPendingUnexpired(ctx, e.db, doc.ID, now)
		if err != nil {
			return Result{}, err
		}
		if pending > 0 {
			return Result{}, ErrActiveGuestsPending
		}
	} else if caller.Invitation != nil && caller.Invitation.Status != invdomain.StatusPending {
		return Result{}, invdomain.ErrAlreadyResponded
	}

	fields, err := e.fields.ListByDocument(ctx, e.db, doc.ID)
	if err != nil {
		return Result{}, err
	}

	eligible := make([]*sigdomain.SignatureField, 0, len(fields))
	for _, field := range fields {
		if field != nil && field.Signed() {
			eligible = append(eligible, field)
		}
	}
	if len(eligible) == 0 {
		return Result{}, ErrNothingToSign
	}

	source, err := e.fetchSource(ctx, doc.FileKey)
	if err != nil {
		return Result{}, err
	}

	pages, err := pdfstamp.Pages(source)
	if err != nil {
		return Result{}, err
	}

	placements := make([]pdfstamp.Placement, 0, len(eligible))
	var skipped []SkippedField
	for _, field := range eligible {
		png, err := decodeSignatureData(field.SignatureData)
		if err != nil {
			e.log.Warn("skipping field with undecodable image",
				zap.String("field_id", field.ID.String()),
				zap.Error(err),
			)
			skipped = append(skipped, SkippedField{FieldID: field.ID.String(), Reason: skipReasonInvalidImage})
			continue
		}
		if field.Page < 1 || field.Page > len(pages) {
			e.log.Warn("skipping field on missing page",
				zap.String("field_id", field.ID.String()),
				zap.Int("page", field.Page),
			)
			skipped = append(skipped, SkippedField{FieldID: field.ID.String(), Reason: skipReasonInvalidPage})
			continue
		}
		placements = append(placements, pdfstamp.Placement{
			Page:   field.Page,
			X:      field.X,
			Y:      field.Y,
			Width:  field.Width,
			Height: field.Height,
			PNG:    png,
		})
	}
	if len(placements) == 0 {
		return Result{}, ErrNothingToSign
	}

	stamped, err := pdfstamp.Stamp(source, placements)
	if err != nil {
		return Result{}, err
	}

	signedKey := storage.NewKey(".pdf")
	if err := e.storage.Put(ctx, signedKey, bytes.NewReader(stamped)); err != nil {
		return Result{}, err
	}

	changed, err := e.docs.MarkSigned(ctx, e.db, doc.ID, signedKey)
	if err != nil {
		return Result{}, err
	}
	if !changed {
		// Lost the race to a concurrent finalize; drop the orphan blob.
		_ = e.storage.Delete(ctx, signedKey)
		return Result{}, docdomain.ErrNotPending
	}

	if caller.Kind == access.KindOwner {
		if err := e.invs.CompleteAllPending(ctx, e.db, doc.ID); err != nil {
			e.log.Warn("failed to complete remaining invitations", zap.Error(err))
		}
	} else if caller.Invitation != nil {
		if _, err := e.invs.UpdateStatusIf(ctx, e.db, caller.Invitation.ID, invdomain.StatusPending, invdomain.StatusCompleted); err != nil {
			e.log.Warn("failed to complete invitation", zap.Error(err))
		}
	}

	doc.Status = docdomain.StatusSigned
	doc.SignedKey = signedKey

	actor, actorType := actorIdentity(caller)
	e.audit.Record(ctx, auditdomain.Entry{
		DocumentID: doc.ID,
		ActorType:  actorType,
		Actor:      actor,
		Action:     "document.finalized",
		TargetType: "document",
		TargetID:   doc.ID.String(),
		Metadata: map[string]any{
			"embedded_fields": len(placements),
			"skipped_fields":  len(skipped),
		},
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})
	e.events.Publish(doc.ID.String(), events.Event{
		DocumentID: doc.ID.String(),
		Type:       events.TypeDocumentSigned,
		Actor:      actor,
		Status:     string(docdomain.StatusSigned),
	})

	e.log.Info("document finalized",
		zap.String("document_id", doc.ID.String()),
		zap.Int("embedded", len(placements)),
		zap.Int("skipped", len(skipped)),
	)

	return Result{
		Document:      *doc,
		EmbeddedCount: len(placements),
		SkippedFields: skipped,
	}, nil
}

// fetchSource loads the original PDF; any failure here aborts before any
// state mutation so a retry is always safe.
func (e *Engine) fetchSource(ctx context.Context, key string) ([]byte, error) {
	rc, err := e.storage.Get(ctx, key)
	if err != nil {
		return nil, ErrSourceFetchFailed
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil || len(data) == 0 {
		return nil, ErrSourceFetchFailed
	}
	return data, nil
}

func decodeSignatureData(data string) ([]byte, error) {
	raw := strings.TrimPrefix(data, sigdomain.PNGDataPrefix)
	return base64.StdEncoding.DecodeString(raw)
}

func actorIdentity(caller access.Caller) (actor, actorType string) {
	if caller.Kind == access.KindOwner {
		return caller.UserID.String(), "owner"
	}
	if caller.Email != "" {
		return caller.Email, "guest"
	}
	return "share-link", "guest"
}

var Module = fx.Module("finalize.engine",
	fx.Provide(New),
)

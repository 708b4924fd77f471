package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/identity"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/dmitrijs2005/docseal/internal/server/blobstore"
	"github.com/dmitrijs2005/docseal/internal/server/models"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/repomanager"
)

// DocumentService stores and hands out envelopes. Envelopes are opaque
// here; only their size is inspected.
type DocumentService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	blobs            blobstore.Store
	maxEnvelopeBytes int64
	logger           logging.Logger
	now              func() time.Time
}

// NewDocumentService builds the service. With a nil blobs store envelopes
// are kept inline in the documents table.
func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, maxEnvelopeBytes int64, l logging.Logger) *DocumentService {
	return &DocumentService{
		db:               db,
		repomanager:      m,
		blobs:            blobs,
		maxEnvelopeBytes: maxEnvelopeBytes,
		logger:           l.With("module", "documents"),
		now:              time.Now,
	}
}

// BaseFileName drops any directory part a client may have sent.
func BaseFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Put stores envelope for recipientID and returns the new document id.
func (s *DocumentService) Put(ctx context.Context, senderID, recipientID, filename string, envelope []byte) (string, error) {
	recipientID = identity.Normalize(recipientID)
	filename = BaseFileName(filename)

	var problems []string
	if !identity.IsCanonical(recipientID) {
		problems = append(problems, "recipientId must be an email address")
	}
	if filename == "" {
		problems = append(problems, "file name is required")
	}
	if len(envelope) == 0 {
		problems = append(problems, "envelope is required")
	} else if int64(len(envelope)) > s.maxEnvelopeBytes {
		problems = append(problems, fmt.Sprintf("envelope exceeds %d bytes", s.maxEnvelopeBytes))
	}
	if len(problems) > 0 {
		return "", common.NewValidationError(problems...)
	}

	exists, err := s.repomanager.Users(s.db).Exists(ctx, recipientID)
	if err != nil {
		return "", fmt.Errorf("error checking recipient: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("recipient %s: %w", recipientID, common.ErrNotFound)
	}

	doc := &models.Document{
		OriginalFileName: filename,
		SenderID:         senderID,
		RecipientID:      recipientID,
		Size:             int64(len(envelope)),
	}

	if s.blobs != nil {
		key := blobstore.EnvelopeKey(s.now())
		if err := s.blobs.Put(ctx, key, envelope); err != nil {
			return "", fmt.Errorf("error storing envelope: %w", err)
		}
		doc.StorageKey = key
	} else {
		doc.Envelope = envelope
	}

	created, err := s.repomanager.Documents(s.db).Create(ctx, doc)
	if err != nil {
		if doc.StorageKey != "" {
			s.discardBlob(ctx, doc.StorageKey)
		}
		return "", fmt.Errorf("error creating document: %w", err)
	}

	s.logger.Info(ctx, "document stored", "document_id", created.ID, "sender", senderID, "recipient", recipientID, "size", created.Size)
	return created.ID, nil
}

// discardBlob removes an envelope whose row was never written. A failure
// is logged with the key so the object can be removed later.
func (s *DocumentService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error(ctx, "orphaned envelope object", "storage_key", key, "error", err)
	}
}

// ListReceived returns the documents addressed to recipient, newest first.
func (s *DocumentService) ListReceived(ctx context.Context, recipient string) ([]models.DocumentSummary, error) {
	list, err := s.repomanager.Documents(s.db).ListByRecipient(ctx, identity.Normalize(recipient))
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	return list, nil
}

// GetEnvelope returns the document with its envelope bytes. Only the
// recipient may fetch it; anyone else gets common.ErrForbidden.
func (s *DocumentService) GetEnvelope(ctx context.Context, id, requester string) (*models.Document, error) {
	doc, err := s.repomanager.Documents(s.db).Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading document: %w", err)
	}

	if doc.RecipientID != identity.Normalize(requester) {
		s.logger.Warn(ctx, "document access denied", "document_id", id, "requester", requester)
		return nil, common.ErrForbidden
	}

	if doc.StorageKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("document %s is in object storage but none is configured: %w", id, common.ErrInternal)
		}
		data, err := s.blobs.Get(ctx, doc.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("error loading envelope: %w", err)
		}
		doc.Envelope = data
	}

	return doc, nil
}

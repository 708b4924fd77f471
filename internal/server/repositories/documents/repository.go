// Package documents stores envelope metadata and, for inline storage, the
// envelope bytes themselves.
package documents

import (
	"context"

	"github.com/dmitrijs2005/docseal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, d *models.Document) (*models.Document, error)
	// ListByRecipient returns summaries newest first.
	ListByRecipient(ctx context.Context, recipientID string) ([]models.DocumentSummary, error)
	Get(ctx context.Context, id string) (*models.Document, error)
}

package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/dbx"
	"github.com/dmitrijs2005/docseal/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	var envelope any
	if d.Envelope != nil {
		envelope = d.Envelope
	}

	query :=
		`INSERT INTO documents (id, original_file_name, sender_id, recipient_id, envelope, storage_key, size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		d.ID, d.OriginalFileName, d.SenderID, d.RecipientID, envelope, nullable(d.StorageKey), d.Size).
		Scan(&d.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return d, nil
}

func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID string) ([]models.DocumentSummary, error) {
	query :=
		`SELECT id, original_file_name, sender_id, size, created_at
		 FROM documents
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.DocumentSummary, 0)
	for rows.Next() {
		var s models.DocumentSummary
		if err := rows.Scan(&s.ID, &s.OriginalFileName, &s.SenderID, &s.Size, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	query :=
		`SELECT id, original_file_name, sender_id, recipient_id, envelope, COALESCE(storage_key, ''), size, created_at
		 FROM documents
		 WHERE id = $1`

	d := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.OriginalFileName, &d.SenderID, &d.RecipientID, &d.Envelope, &d.StorageKey, &d.Size, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return d, nil
}

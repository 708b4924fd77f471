package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/dbx"
	"github.com/dmitrijs2005/docseal/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.PendingRegistration) error {
	query :=
		`INSERT INTO pending_registrations (email, name, password_hash, otp_hash, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name,
		     password_hash = EXCLUDED.password_hash,
		     otp_hash = EXCLUDED.otp_hash,
		     expires_at = EXCLUDED.expires_at,
		     created_at = now()`

	_, err := r.db.ExecContext(ctx, query, p.Email, p.Name, p.PasswordHash, p.OTPHash, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, email string) (*models.PendingRegistration, error) {
	query :=
		`SELECT email, name, password_hash, otp_hash, expires_at, created_at
		 FROM pending_registrations
		 WHERE email = $1`

	p := &models.PendingRegistration{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&p.Email, &p.Name, &p.PasswordHash, &p.OTPHash, &p.ExpiresAt, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM pending_registrations WHERE email = $1`

	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM pending_registrations WHERE expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

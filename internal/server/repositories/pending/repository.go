// Package pending stores unconfirmed registrations awaiting their one-time
// code.
package pending

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docseal/internal/server/models"
)

type Repository interface {
	// Upsert replaces any pending row for the same email.
	Upsert(ctx context.Context, p *models.PendingRegistration) error
	Get(ctx context.Context, email string) (*models.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

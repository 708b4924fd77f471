package users

import (
	"context"

	"github.com/dmitrijs2005/docseal/internal/server/models"
)

type Repository interface {
	// Create inserts a user. A duplicate email yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, email string) (bool, error)
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docseal/internal/dbx"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/pending"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Pending(db dbx.DBTX) pending.Repository
	Documents(db dbx.DBTX) documents.Repository
}

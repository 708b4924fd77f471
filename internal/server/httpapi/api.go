// Package httpapi exposes the main docseal service over HTTP: registration
// and login, the private-key relay, document upload and retrieval, and the
// engine public parameters.
package httpapi

import (
	"context"

	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/dmitrijs2005/docseal/internal/server/models"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	Initiate(ctx context.Context, email, password, name string) (*models.PendingRegistration, error)
	Verify(ctx context.Context, email, code string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type KeyRelay interface {
	RelayKeyRequest(ctx context.Context, rawToken, email string) (string, error)
}

type DocumentStore interface {
	Put(ctx context.Context, senderID, recipientID, filename string, envelope []byte) (string, error)
	ListReceived(ctx context.Context, recipient string) ([]models.DocumentSummary, error)
	GetEnvelope(ctx context.Context, id, requester string) (*models.Document, error)
}

// Deps is everything the router needs.
type Deps struct {
	Registrar        Registrar
	KeyRelay         KeyRelay
	Documents        DocumentStore
	Params           []byte
	SecretKey        []byte
	MaxEnvelopeBytes int64
	Logger           logging.Logger
}

// NewRouter builds the gin engine with every controller mounted.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := httpx.NewRouter(d.Logger)
	bearer := httpx.BearerAuth(d.SecretKey)

	controllers := []httpx.Controller{
		&AuthController{Svc: d.Registrar},
		&UserController{Relay: d.KeyRelay, Auth: bearer},
		&FileController{Svc: d.Documents, Auth: bearer, MaxEnvelopeBytes: d.MaxEnvelopeBytes},
		&ParamsController{Params: d.Params},
	}
	for _, c := range controllers {
		if err := httpx.RegisterHandlers(r, c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

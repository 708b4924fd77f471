// Package httpapi exposes the KDC over HTTP.
package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/gin-gonic/gin"
)

type KeyIssuer interface {
	GenerateKey(ctx context.Context, delegatedCredential, serverCredential, claimedEmail string) ([]byte, error)
}

// KeyController serves POST /generate-key.
type KeyController struct {
	Svc KeyIssuer
}

func (c *KeyController) GroupName() string { return "/" }

func (c *KeyController) Endpoints() httpx.EndpointMap {
	return httpx.EndpointMap{
		httpx.Route{Path: "generate-key", Method: http.MethodPost}: {c.handleGenerateKey},
	}
}

type generateKeyRequest struct {
	Email               string `json:"email"`
	DelegatedCredential string `json:"delegatedCredential"`
}

type generateKeyResponse struct {
	PrivateKeyB64 string `json:"privateKeyB64"`
}

func (c *KeyController) handleGenerateKey(ctx *gin.Context) {
	// A body that does not bind leaves the credential empty; the server
	// credential is still checked first.
	var req generateKeyRequest
	_ = ctx.ShouldBindJSON(&req)

	key, err := c.Svc.GenerateKey(ctx.Request.Context(), req.DelegatedCredential, ctx.GetHeader(common.ServerCredentialHeader), req.Email)
	if err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusOK, generateKeyResponse{PrivateKeyB64: base64.StdEncoding.EncodeToString(key)})
}

func NewRouter(svc KeyIssuer, l logging.Logger) (*gin.Engine, error) {
	r := httpx.NewRouter(l)
	if err := httpx.RegisterHandlers(r, &KeyController{Svc: svc}); err != nil {
		return nil, err
	}
	return r, nil
}

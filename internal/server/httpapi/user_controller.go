package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/dmitrijs2005/docseal/internal/server/kdcclient"
	"github.com/gin-gonic/gin"
)

// UserController serves /users. The private key is fetched from the KDC
// per request and never stored.
type UserController struct {
	Relay KeyRelay
	Auth  gin.HandlerFunc
}

func (c *UserController) GroupName() string { return "/users" }

func (c *UserController) Endpoints() httpx.EndpointMap {
	return httpx.EndpointMap{
		httpx.Route{Path: "my-private-key", Method: http.MethodGet}: {c.Auth, c.handlePrivateKey},
	}
}

func (c *UserController) handlePrivateKey(ctx *gin.Context) {
	claims, ok := httpx.ClaimsFrom(ctx)
	if !ok {
		httpx.AbortWithMessage(ctx, http.StatusUnauthorized, common.CodeCredentialInvalid, "missing bearer credential")
		return
	}

	key, err := c.Relay.RelayKeyRequest(ctx.Request.Context(), httpx.RawTokenFrom(ctx), claims.Email)
	ctx.Header("Cache-Control", "no-store")

	var se *kdcclient.StatusError
	switch {
	case err == nil:
		ctx.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(key))
	case errors.As(err, &se):
		ct := se.ContentType
		if ct == "" {
			ct = "application/json; charset=utf-8"
		}
		ctx.Data(se.StatusCode, ct, se.Body)
		ctx.Abort()
	default:
		httpx.AbortWithError(ctx, err)
	}
}

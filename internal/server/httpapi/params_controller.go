package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/gin-gonic/gin"
)

// ParamsController publishes the engine public parameters so clients need
// no local copy.
type ParamsController struct {
	Params []byte
}

func (c *ParamsController) GroupName() string { return "/params" }

func (c *ParamsController) Endpoints() httpx.EndpointMap {
	return httpx.EndpointMap{
		httpx.Route{Path: "", Method: http.MethodGet}: {c.handleParams},
	}
}

type paramsResponse struct {
	ParamsB64 string `json:"paramsB64"`
}

func (c *ParamsController) handleParams(ctx *gin.Context) {
	if len(c.Params) == 0 {
		httpx.AbortWithMessage(ctx, http.StatusNotFound, common.CodeNotFound, "public parameters not configured")
		return
	}
	ctx.JSON(http.StatusOK, paramsResponse{ParamsB64: base64.StdEncoding.EncodeToString(c.Params)})
}

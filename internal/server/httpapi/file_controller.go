package httpapi

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/gin-gonic/gin"
)

const (
	// multipartSlack is what the form wrapping may add on top of the envelope.
	multipartSlack = 1 << 20
	// multipartMemory is how much of a form is held in memory before
	// spilling to temporary files.
	multipartMemory = 32 << 20
)

// FileController serves /files: envelope upload, inbox listing and
// download. Every route needs a session credential.
type FileController struct {
	Svc              DocumentStore
	Auth             gin.HandlerFunc
	MaxEnvelopeBytes int64
}

func (c *FileController) GroupName() string { return "/files" }

func (c *FileController) Endpoints() httpx.EndpointMap {
	return httpx.EndpointMap{
		httpx.Route{Path: "upload-encrypted", Method: http.MethodPost}:      {c.Auth, c.handleUpload},
		httpx.Route{Path: "received", Method: http.MethodGet}:               {c.Auth, c.handleReceived},
		httpx.Route{Path: "download-encrypted/:id", Method: http.MethodGet}: {c.Auth, c.handleDownload},
	}
}

type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

type documentSummary struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	SenderID         string    `json:"senderId"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"createdAt"`
}

type envelopeResponse struct {
	EnvelopeB64      string `json:"envelopeB64"`
	OriginalFileName string `json:"originalFileName"`
	SenderID         string `json:"senderId"`
}

func (c *FileController) handleUpload(ctx *gin.Context) {
	claims, _ := httpx.ClaimsFrom(ctx)
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.MaxEnvelopeBytes+multipartSlack)

	// Other parse failures surface below as missing fields.
	if err := ctx.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.AbortWithMessage(ctx, http.StatusRequestEntityTooLarge, common.CodeValidation, "envelope too large")
			return
		}
	}

	pel := &httpx.ParameterErrorList{}
	recipient := pel.AppendIfEmptyOrBlankSpaces(ctx.PostForm("recipientId"), "recipientId is required")

	fh, err := ctx.FormFile("envelope")
	if err != nil {
		*pel = append(*pel, "envelope file is required")
	}
	if pel.Abort(ctx) {
		return
	}
	if fh.Size > c.MaxEnvelopeBytes {
		httpx.AbortWithMessage(ctx, http.StatusRequestEntityTooLarge, common.CodeValidation, "envelope too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}
	defer f.Close()

	envelope, err := io.ReadAll(io.LimitReader(f, c.MaxEnvelopeBytes+1))
	if err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}

	id, err := c.Svc.Put(ctx.Request.Context(), claims.Email, recipient, fh.Filename, envelope)
	if err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, uploadResponse{Message: "document uploaded", DocumentID: id})
}

func (c *FileController) handleReceived(ctx *gin.Context) {
	claims, _ := httpx.ClaimsFrom(ctx)

	list, err := c.Svc.ListReceived(ctx.Request.Context(), claims.Email)
	if err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}

	out := make([]documentSummary, 0, len(list))
	for _, d := range list {
		out = append(out, documentSummary{
			ID:               d.ID,
			OriginalFileName: d.OriginalFileName,
			SenderID:         d.SenderID,
			Size:             d.Size,
			CreatedAt:        d.CreatedAt,
		})
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *FileController) handleDownload(ctx *gin.Context) {
	claims, _ := httpx.ClaimsFrom(ctx)

	doc, err := c.Svc.GetEnvelope(ctx.Request.Context(), ctx.Param("id"), claims.Email)
	if err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, envelopeResponse{
		EnvelopeB64:      base64.StdEncoding.EncodeToString(doc.Envelope),
		OriginalFileName: doc.OriginalFileName,
		SenderID:         doc.SenderID,
	})
}

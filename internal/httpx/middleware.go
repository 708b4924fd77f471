package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "docseal.request_id"
	claimsKey    = "docseal.claims"
	rawTokenKey  = "docseal.raw_token"
)

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(common.RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(common.RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs one line per request. Query strings are not logged.
func AccessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", RequestIDFrom(c),
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error(ctx, "request failed", args...)
		case status >= 400:
			log.Warn(ctx, "request rejected", args...)
		default:
			log.Info(ctx, "request served", args...)
		}
	}
}

// Recovery turns a panic into a 500 with the usual error body.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered interface{}) {
		log.Error(c.Request.Context(), "panic recovered", "panic", fmt.Sprint(recovered), "request_id", RequestIDFrom(c))
		AbortWithError(c, common.ErrInternal)
	})
}

// BearerAuth verifies the session credential in the Authorization header
// and stores both the claims and the exact raw token on the context.
func BearerAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			AbortWithMessage(c, http.StatusUnauthorized, common.CodeCredentialInvalid, "missing bearer credential")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
		if raw == "" {
			AbortWithMessage(c, http.StatusUnauthorized, common.CodeCredentialInvalid, "missing bearer credential")
			return
		}

		claims, err := auth.ParseToken(raw, secret)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(rawTokenKey, raw)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by BearerAuth.
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// RawTokenFrom returns the credential exactly as the caller sent it.
func RawTokenFrom(c *gin.Context) string {
	return c.GetString(rawTokenKey)
}

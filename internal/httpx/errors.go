package httpx

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ValidationBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type MessageBody struct {
	Message string `json:"message"`
}

// Classify maps an error to its HTTP status and error code. Order matters:
// the specific sentinels wrap the generic ones.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, common.CodeValidation
	case errors.Is(err, common.ErrConflict):
		return http.StatusBadRequest, common.CodeConflict
	case errors.Is(err, common.ErrInvalidCode):
		return http.StatusBadRequest, common.CodeInvalidCode
	case errors.Is(err, common.ErrOTPExpired):
		return http.StatusBadRequest, common.CodeCodeExpired
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, common.CodeCredentialExpired
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, common.CodeInvalidCredentials
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, common.CodeCredentialInvalid
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, common.CodeForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.CodeNotFound
	case errors.Is(err, common.ErrUpstream):
		return http.StatusBadGateway, common.CodeUpstreamUnavailable
	case errors.Is(err, common.ErrEngine):
		return http.StatusInternalServerError, common.CodeEngine
	default:
		return http.StatusInternalServerError, common.CodeInternal
	}
}

var publicMessages = map[string]string{
	common.CodeValidation:          "invalid request",
	common.CodeConflict:            "user already exists",
	common.CodeInvalidCode:         "invalid one-time code",
	common.CodeCodeExpired:         "one-time code expired, please register again",
	common.CodeCredentialInvalid:   "invalid or missing credential",
	common.CodeCredentialExpired:   "credential expired, please log in again",
	common.CodeInvalidCredentials:  "invalid email or password",
	common.CodeForbidden:           "access denied",
	common.CodeNotFound:            "not found",
	common.CodeEngine:              "cryptographic operation failed",
	common.CodeUpstreamUnavailable: "key service unavailable",
	common.CodeInternal:            "internal server error",
}

// AbortWithError writes the JSON error body for err. Internal details never
// reach the client; validation problems are listed individually.
func AbortWithError(c *gin.Context, err error) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ValidationBody{Message: "invalid request", Errors: ve.Problems})
		return
	}

	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Message: publicMessages[code], Code: code})
}

// AbortWithMessage writes an ErrorBody with a caller-chosen message.
func AbortWithMessage(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Message: message, Code: code})
}

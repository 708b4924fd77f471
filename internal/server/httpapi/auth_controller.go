package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/gin-gonic/gin"
)

// AuthController serves registration and login under /auth.
type AuthController struct {
	Svc Registrar
}

func (c *AuthController) GroupName() string { return "/auth" }

func (c *AuthController) Endpoints() httpx.EndpointMap {
	return httpx.EndpointMap{
		httpx.Route{Path: "initiate-registration", Method: http.MethodPost}: {c.handleInitiate},
		httpx.Route{Path: "verify-registration", Method: http.MethodPost}:   {c.handleVerify},
		httpx.Route{Path: "login", Method: http.MethodPost}:                 {c.handleLogin},
	}
}

type initiateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func bindJSON(ctx *gin.Context, v any) bool {
	if err := ctx.ShouldBindJSON(v); err != nil {
		httpx.AbortWithMessage(ctx, http.StatusBadRequest, common.CodeValidation, "request body must be JSON")
		return false
	}
	return true
}

func (c *AuthController) handleInitiate(ctx *gin.Context) {
	var req initiateRequest
	if !bindJSON(ctx, &req) {
		return
	}

	pel := &httpx.ParameterErrorList{}
	req.Email = pel.AppendIfEmptyOrBlankSpaces(req.Email, "email is required")
	if req.Password == "" {
		*pel = append(*pel, "password is required")
	}
	if pel.Abort(ctx) {
		return
	}

	if _, err := c.Svc.Initiate(ctx.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		httpx.AbortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, httpx.MessageBody{Message: "verification code sent, check your inbox"})
}

func (c *AuthController) handleVerify(ctx *gin.Context) {
	var req verifyRequest
	if !bindJSON(ctx, &req) {
		return
	}

	pel := &httpx.ParameterErrorList{}
	req.Email = pel.AppendIfEmptyOrBlankSpaces(req.Email, "email is required")
	req.OTP = pel.AppendIfEmptyOrBlankSpaces(req.OTP, "otp is required")
	if pel.Abort(ctx) {
		return
	}

	_, err := c.Svc.Verify(ctx.Request.Context(), req.Email, req.OTP)
	switch {
	case err == nil:
		ctx.JSON(http.StatusCreated, httpx.MessageBody{Message: "registration complete, you can now log in"})
	case errors.Is(err, common.ErrNotFound):
		httpx.AbortWithMessage(ctx, http.StatusBadRequest, common.CodeNotFound, "no pending registration for this email")
	default:
		httpx.AbortWithError(ctx, err)
	}
}

func (c *AuthController) handleLogin(ctx *gin.Context) {
	var req loginRequest
	if !bindJSON(ctx, &req) {
		return
	}

	token, err := c.Svc.Login(ctx.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, tokenResponse{Token: token})
	case errors.Is(err, common.ErrInvalidCredentials):
		httpx.AbortWithMessage(ctx, http.StatusBadRequest, common.CodeInvalidCredentials, "invalid email or password")
	default:
		httpx.AbortWithError(ctx, err)
	}
}

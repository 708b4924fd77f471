package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingController struct{ method string }

func (p *pingController) GroupName() string { return "/ping" }

func (p *pingController) Endpoints() EndpointMap {
	return EndpointMap{
		Route{"", p.method}: []gin.HandlerFunc{func(c *gin.Context) { c.String(http.StatusOK, "pong") }},
	}
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHandlers(t *testing.T) {
	r := NewRouter(logging.Discard())
	require.NoError(t, RegisterHandlers(r, &pingController{method: "get"}))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	err := RegisterHandlers(gin.New(), &pingController{method: "TRACE"})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	w := do(NewRouter(logging.Discard()), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(common.RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(common.RequestIDHeader, "abc-123")
	w := do(NewRouter(logging.Discard()), req)
	assert.Equal(t, "abc-123", w.Header().Get(common.RequestIDHeader))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{common.NewValidationError("x"), http.StatusBadRequest, common.CodeValidation},
		{common.ErrConflict, http.StatusBadRequest, common.CodeConflict},
		{common.ErrInvalidCode, http.StatusBadRequest, common.CodeInvalidCode},
		{common.ErrOTPExpired, http.StatusBadRequest, common.CodeCodeExpired},
		{common.ErrTokenExpired, http.StatusUnauthorized, common.CodeCredentialExpired},
		{common.ErrInvalidToken, http.StatusUnauthorized, common.CodeCredentialInvalid},
		{common.ErrInvalidCredentials, http.StatusUnauthorized, common.CodeInvalidCredentials},
		{common.ErrInvalidServerSecret, http.StatusForbidden, common.CodeForbidden},
		{fmt.Errorf("wrap: %w", common.ErrNotFound), http.StatusNotFound, common.CodeNotFound},
		{common.ErrUpstream, http.StatusBadGateway, common.CodeUpstreamUnavailable},
		{common.ErrCorruptEnvelope, http.StatusInternalServerError, common.CodeEngine},
		{errors.New("boom"), http.StatusInternalServerError, common.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestAbortWithError_Bodies(t *testing.T) {
	r := gin.New()
	r.GET("/v", func(c *gin.Context) { AbortWithError(c, common.NewValidationError("a", "b")) })
	r.GET("/i", func(c *gin.Context) { AbortWithError(c, errors.New("db password leaked")) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/v", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var vb ValidationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vb))
	assert.Equal(t, []string{"a", "b"}, vb.Errors)

	w = do(r, httptest.NewRequest(http.MethodGet, "/i", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "leaked")
	var eb ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eb))
	assert.Equal(t, common.CodeInternal, eb.Code)
}

func TestParameterErrorList(t *testing.T) {
	r := gin.New()
	r.GET("/p", func(c *gin.Context) {
		pel := &ParameterErrorList{}
		v := pel.AppendIfEmptyOrBlankSpaces(c.Query("v"), "v is required")
		if pel.Abort(c) {
			return
		}
		c.String(http.StatusOK, v)
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "v is required")

	w = do(r, httptest.NewRequest(http.MethodGet, "/p?v=+x+", nil))
	assert.Equal(t, "x", w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := NewRouter(logging.Discard())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := do(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestBearerAuth(t *testing.T) {
	secret := []byte("s3cret")
	r := gin.New()
	r.GET("/me", BearerAuth(secret), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Email+"|"+RawTokenFrom(c))
	})

	token, err := auth.GenerateToken("u1", "alice@iiita.ac.in", secret, time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken("u1", "alice@iiita.ac.in", secret, -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("u1", "alice@iiita.ac.in", []byte("other"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, common.CodeCredentialInvalid},
		{"not bearer", "Basic abc", http.StatusUnauthorized, common.CodeCredentialInvalid},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, common.CodeCredentialInvalid},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, common.CodeCredentialExpired},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, common.CodeCredentialInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(common.AuthorizationHeader, tt.header)
			}
			w := do(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.code == "" {
				assert.Equal(t, "alice@iiita.ac.in|"+token, w.Body.String())
				return
			}
			var eb ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eb))
			assert.Equal(t, tt.code, eb.Code)
		})
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), NewRouter(logging.Discard()), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

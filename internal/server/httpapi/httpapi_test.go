package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/dmitrijs2005/docseal/internal/server/kdcclient"
	"github.com/dmitrijs2005/docseal/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRegistrar struct {
	initiateErr error
	verifyErr   error
	loginToken  string
	loginErr    error
	gotName     string
}

func (f *fakeRegistrar) Initiate(ctx context.Context, email, password, name string) (*models.PendingRegistration, error) {
	f.gotName = name
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	return &models.PendingRegistration{Email: email}, nil
}

func (f *fakeRegistrar) Verify(ctx context.Context, email, code string) (*models.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &models.User{ID: "u1", Email: email}, nil
}

func (f *fakeRegistrar) Login(ctx context.Context, email, password string) (string, error) {
	return f.loginToken, f.loginErr
}

type fakeRelay struct {
	gotToken, gotEmail string
	key                string
	err                error
}

func (f *fakeRelay) RelayKeyRequest(ctx context.Context, rawToken, email string) (string, error) {
	f.gotToken, f.gotEmail = rawToken, email
	return f.key, f.err
}

type fakeDocs struct {
	putSender, putRecipient, putName string
	putEnvelope                      []byte
	putErr                           error
	list                             []models.DocumentSummary
	doc                              *models.Document
	getErr                           error
	gotRequester                     string
}

func (f *fakeDocs) Put(ctx context.Context, senderID, recipientID, filename string, envelope []byte) (string, error) {
	f.putSender, f.putRecipient, f.putName, f.putEnvelope = senderID, recipientID, filename, envelope
	if f.putErr != nil {
		return "", f.putErr
	}
	return "doc-1", nil
}

func (f *fakeDocs) ListReceived(ctx context.Context, recipient string) ([]models.DocumentSummary, error) {
	return f.list, nil
}

func (f *fakeDocs) GetEnvelope(ctx context.Context, id, requester string) (*models.Document, error) {
	f.gotRequester = requester
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

type harness struct {
	router *gin.Engine
	reg    *fakeRegistrar
	relay  *fakeRelay
	docs   *fakeDocs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{reg: &fakeRegistrar{}, relay: &fakeRelay{}, docs: &fakeDocs{}}
	r, err := NewRouter(Deps{
		Registrar:        h.reg,
		KeyRelay:         h.relay,
		Documents:        h.docs,
		Params:           []byte("params"),
		SecretKey:        secret,
		MaxEnvelopeBytes: 64,
		Logger:           logging.Discard(),
	})
	require.NoError(t, err)
	h.router = r
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func bearer(t *testing.T, req *http.Request, email string) string {
	t.Helper()
	token, err := auth.GenerateToken("u1", email, secret, time.Hour)
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var eb httpx.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eb))
	return eb
}

func TestInitiateRegistration(t *testing.T) {
	h := newHarness(t)

	w := h.do(jsonRequest(http.MethodPost, "/auth/initiate-registration", `{"name":"Al","email":"a@iiita.ac.in","password":"pw123456"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "message")
	assert.Equal(t, "Al", h.reg.gotName)

	w = h.do(jsonRequest(http.MethodPost, "/auth/initiate-registration", `{"email":" "}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var vb httpx.ValidationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vb))
	assert.Len(t, vb.Errors, 2)

	w = h.do(jsonRequest(http.MethodPost, "/auth/initiate-registration", `not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h.reg.initiateErr = common.ErrConflict
	w = h.do(jsonRequest(http.MethodPost, "/auth/initiate-registration", `{"email":"a@iiita.ac.in","password":"pw123456"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.CodeConflict, decodeError(t, w).Code)

	h.reg.initiateErr = common.NewValidationError("email must belong to @iiita.ac.in")
	w = h.do(jsonRequest(http.MethodPost, "/auth/initiate-registration", `{"email":"a@x.com","password":"pw123456"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "@iiita.ac.in")

	h.reg.initiateErr = common.ErrUpstream
	w = h.do(jsonRequest(http.MethodPost, "/auth/initiate-registration", `{"email":"a@iiita.ac.in","password":"pw123456"}`))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestVerifyRegistration(t *testing.T) {
	h := newHarness(t)
	body := `{"email":"a@iiita.ac.in","otp":"123456"}`

	w := h.do(jsonRequest(http.MethodPost, "/auth/verify-registration", body))
	assert.Equal(t, http.StatusCreated, w.Code)

	for _, err := range []error{common.ErrNotFound, common.ErrInvalidCode, common.ErrOTPExpired, common.ErrConflict} {
		h.reg.verifyErr = err
		w = h.do(jsonRequest(http.MethodPost, "/auth/verify-registration", body))
		assert.Equal(t, http.StatusBadRequest, w.Code, err.Error())
		assert.NotEmpty(t, decodeError(t, w).Message)
	}

	h.reg.verifyErr = nil
	w = h.do(jsonRequest(http.MethodPost, "/auth/verify-registration", `{"email":"a@iiita.ac.in"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.reg.loginToken = "tok"

	w := h.do(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@iiita.ac.in","password":"pw123456"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"tok"}`, w.Body.String())

	h.reg.loginErr = common.ErrInvalidCredentials
	w = h.do(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@iiita.ac.in","password":"x"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.CodeInvalidCredentials, decodeError(t, w).Code)
}

func TestPrivateKey(t *testing.T) {
	h := newHarness(t)
	h.relay.key = "a2V5LWJ5dGVz"

	req := httptest.NewRequest(http.MethodGet, "/users/my-private-key", nil)
	token := bearer(t, req, "a@iiita.ac.in")
	w := h.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a2V5LWJ5dGVz", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, token, h.relay.gotToken, "raw token forwarded unchanged")
	assert.Equal(t, "a@iiita.ac.in", h.relay.gotEmail)
}

func TestPrivateKey_Unauthenticated(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/users/my-private-key", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, h.relay.gotToken)
}

func TestPrivateKey_KDCStatusRelayed(t *testing.T) {
	h := newHarness(t)
	h.relay.err = &kdcclient.StatusError{
		StatusCode:  http.StatusForbidden,
		Body:        []byte(`{"message":"invalid server credentials","code":"forbidden"}`),
		ContentType: "application/json; charset=utf-8",
	}

	req := httptest.NewRequest(http.MethodGet, "/users/my-private-key", nil)
	bearer(t, req, "a@iiita.ac.in")
	w := h.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"invalid server credentials","code":"forbidden"}`, w.Body.String())
}

func TestPrivateKey_Upstream(t *testing.T) {
	h := newHarness(t)
	h.relay.err = common.ErrUpstream

	req := httptest.NewRequest(http.MethodGet, "/users/my-private-key", nil)
	bearer(t, req, "a@iiita.ac.in")
	w := h.do(req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, common.CodeUpstreamUnavailable, decodeError(t, w).Code)
}

func multipartUpload(t *testing.T, recipient, filename string, envelope []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if recipient != "" {
		require.NoError(t, mw.WriteField("recipientId", recipient))
	}
	if envelope != nil {
		fw, err := mw.CreateFormFile("envelope", filename)
		require.NoError(t, err)
		_, err = fw.Write(envelope)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload-encrypted", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	h := newHarness(t)

	req := multipartUpload(t, "bob@iiita.ac.in", "r.pdf.bob@iiita.ac.in.enc", []byte("sealed"))
	bearer(t, req, "alice@iiita.ac.in")
	w := h.do(req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"document uploaded","documentId":"doc-1"}`, w.Body.String())
	assert.Equal(t, "alice@iiita.ac.in", h.docs.putSender)
	assert.Equal(t, "bob@iiita.ac.in", h.docs.putRecipient)
	assert.Equal(t, "r.pdf.bob@iiita.ac.in.enc", h.docs.putName)
	assert.Equal(t, []byte("sealed"), h.docs.putEnvelope)
}

func TestUpload_Rejections(t *testing.T) {
	h := newHarness(t)

	req := multipartUpload(t, "", "r.enc", nil)
	bearer(t, req, "alice@iiita.ac.in")
	w := h.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var vb httpx.ValidationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vb))
	assert.Len(t, vb.Errors, 2)

	req = multipartUpload(t, "bob@iiita.ac.in", "r.enc", make([]byte, 65))
	bearer(t, req, "alice@iiita.ac.in")
	w = h.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req = multipartUpload(t, "bob@iiita.ac.in", "r.enc", make([]byte, multipartSlack+128))
	bearer(t, req, "alice@iiita.ac.in")
	w = h.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "envelope too large")
	assert.Nil(t, h.docs.putEnvelope)

	h.docs.putErr = common.ErrNotFound
	req = multipartUpload(t, "ghost@iiita.ac.in", "r.enc", []byte("x"))
	bearer(t, req, "alice@iiita.ac.in")
	w = h.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = multipartUpload(t, "bob@iiita.ac.in", "r.enc", []byte("x"))
	w = h.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReceived(t *testing.T) {
	h := newHarness(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h.docs.list = []models.DocumentSummary{{ID: "d1", OriginalFileName: "a.enc", SenderID: "alice@iiita.ac.in", Size: 3, CreatedAt: created}}

	req := httptest.NewRequest(http.MethodGet, "/files/received", nil)
	bearer(t, req, "bob@iiita.ac.in")
	w := h.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"d1","originalFileName":"a.enc","senderId":"alice@iiita.ac.in","size":3,"createdAt":"2024-01-02T03:04:05Z"}]`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "envelope")

	h.docs.list = nil
	w = h.do(req)
	assert.Equal(t, "[]", w.Body.String())
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	h.docs.doc = &models.Document{ID: "d1", OriginalFileName: "a.enc", SenderID: "alice@iiita.ac.in", Envelope: []byte{0, 1, 2}}

	req := httptest.NewRequest(http.MethodGet, "/files/download-encrypted/d1", nil)
	bearer(t, req, "bob@iiita.ac.in")
	w := h.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	var body envelopeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	raw, err := base64.StdEncoding.DecodeString(body.EnvelopeB64)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, raw)
	assert.Equal(t, "bob@iiita.ac.in", h.docs.gotRequester)

	h.docs.getErr = common.ErrForbidden
	w = h.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	h.docs.getErr = common.ErrNotFound
	w = h.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParams(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/params", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"paramsB64":"`+base64.StdEncoding.EncodeToString([]byte("params"))+`"}`, w.Body.String())

	r, err := NewRouter(Deps{Logger: logging.Discard()})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/params", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

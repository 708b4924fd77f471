package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/docseal/internal/common"
)

// APIError is a non-2xx answer from the main service. It matches the
// common sentinels with errors.Is, using the error code when the server
// sent one and the status otherwise.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Problems   []string
}

func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if msg != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

var codeSentinels = map[string]error{
	common.CodeValidation:          common.ErrValidation,
	common.CodeConflict:            common.ErrConflict,
	common.CodeInvalidCode:         common.ErrInvalidCode,
	common.CodeCodeExpired:         common.ErrOTPExpired,
	common.CodeCredentialInvalid:   common.ErrInvalidToken,
	common.CodeCredentialExpired:   common.ErrTokenExpired,
	common.CodeInvalidCredentials:  common.ErrInvalidCredentials,
	common.CodeForbidden:           common.ErrForbidden,
	common.CodeNotFound:            common.ErrNotFound,
	common.CodeEngine:              common.ErrEngine,
	common.CodeUpstreamUnavailable: common.ErrUpstream,
	common.CodeInternal:            common.ErrInternal,
}

func (e *APIError) sentinel() error {
	if s, ok := codeSentinels[e.Code]; ok {
		return s
	}
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return common.ErrValidation
	case http.StatusUnauthorized:
		return common.ErrUnauthenticated
	case http.StatusForbidden:
		return common.ErrForbidden
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return common.ErrUpstream
	}
	return nil
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	s := e.sentinel()
	return s != nil && errors.Is(s, target)
}

// NetworkError is a request that never produced an HTTP answer. It matches
// common.ErrUpstream.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == common.ErrUpstream
}

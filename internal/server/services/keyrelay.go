package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/dmitrijs2005/docseal/internal/server/kdcclient"
)

// KeyGenerator is the KDC as seen by the main service.
type KeyGenerator interface {
	GenerateKey(ctx context.Context, email, rawToken string) (string, error)
}

// KeyRelayService fetches a caller's private key from the KDC on their
// behalf, passing along the session credential exactly as presented.
type KeyRelayService struct {
	kdc    KeyGenerator
	logger logging.Logger
}

func NewKeyRelayService(kdc KeyGenerator, l logging.Logger) *KeyRelayService {
	return &KeyRelayService{kdc: kdc, logger: l.With("module", "key_relay")}
}

// RelayKeyRequest returns the base64 private key for email. rawToken must
// be the credential string the caller sent, already verified. KDC rejections
// come back as *kdcclient.StatusError; transport problems wrap
// common.ErrUpstream.
func (s *KeyRelayService) RelayKeyRequest(ctx context.Context, rawToken, email string) (string, error) {
	key, err := s.kdc.GenerateKey(ctx, email, rawToken)
	if err != nil {
		var se *kdcclient.StatusError
		if errors.As(err, &se) {
			s.logger.Warn(ctx, "kdc rejected key request", "email", email, "status", se.StatusCode)
		} else {
			s.logger.Error(ctx, "kdc unreachable", "email", email, "error", err)
		}
		return "", err
	}

	s.logger.Info(ctx, "private key relayed", "email", email)
	return key, nil
}

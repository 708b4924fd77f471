// Package service implements the Key Distribution Center: it derives
// identity private keys for callers holding a valid delegated credential.
package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/engine"
	"github.com/dmitrijs2005/docseal/internal/identity"
	"github.com/dmitrijs2005/docseal/internal/kdc/config"
	"github.com/dmitrijs2005/docseal/internal/logging"
)

type KeyService struct {
	engine                  engine.Engine
	master                  []byte
	secret                  []byte
	requireServerCredential bool
	allowedKeys             [][]byte
	logger                  logging.Logger
}

// New builds the service around e, which is wrapped with engine.Serialized.
// master is the engine master secret; it is copied.
func New(e engine.Engine, master []byte, cfg *config.Config, l logging.Logger) *KeyService {
	keys := make([][]byte, 0, len(cfg.AllowedServerKeys))
	for _, k := range cfg.AllowedServerKeys {
		keys = append(keys, []byte(k))
	}
	return &KeyService{
		engine:                  engine.Serialized(e),
		master:                  bytes.Clone(master),
		secret:                  []byte(cfg.SecretKey),
		requireServerCredential: cfg.RequireServerCredential,
		allowedKeys:             keys,
		logger:                  l.With("module", "kdc"),
	}
}

// AuthenticateServer checks a server credential against every allowed key
// in constant time.
func (s *KeyService) AuthenticateServer(credential string) error {
	if !s.requireServerCredential {
		return nil
	}
	c := []byte(credential)
	match := 0
	for _, k := range s.allowedKeys {
		match |= subtle.ConstantTimeCompare(c, k)
	}
	if credential == "" || match != 1 {
		return common.ErrInvalidServerSecret
	}
	return nil
}

// GenerateKey returns the private key for the identity bound inside
// delegatedCredential. claimedEmail is informational only.
func (s *KeyService) GenerateKey(ctx context.Context, delegatedCredential, serverCredential, claimedEmail string) ([]byte, error) {
	if err := s.AuthenticateServer(serverCredential); err != nil {
		s.logger.Warn(ctx, "server credential rejected")
		return nil, err
	}

	if strings.TrimSpace(delegatedCredential) == "" {
		return nil, fmt.Errorf("%w: missing delegated credential", common.ErrInvalidToken)
	}
	claims, err := auth.ParseToken(delegatedCredential, s.secret)
	if err != nil {
		s.logger.Warn(ctx, "delegated credential rejected", "error", err)
		return nil, err
	}

	if claimedEmail != "" && identity.Normalize(claimedEmail) != claims.Email {
		s.logger.Warn(ctx, "claimed email differs from credential, using credential", "claimed", claimedEmail, "bound", claims.Email)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.extract(claims.Email)
	if err != nil {
		s.logger.Error(ctx, "key derivation failed", "email", claims.Email, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "private key issued", "email", claims.Email)
	return key, nil
}

func (s *KeyService) extract(email string) ([]byte, error) {
	scope := engine.NewScope(s.engine)
	defer scope.Close()

	master, err := scope.Load(s.master)
	if err != nil {
		return nil, fmt.Errorf("%w: loading master: %v", common.ErrEngine, err)
	}
	id, err := scope.Load([]byte(email))
	if err != nil {
		return nil, fmt.Errorf("%w: loading identity: %v", common.ErrEngine, err)
	}

	kb, err := s.engine.Extract(master, id)
	scope.Track(kb)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %v", common.ErrEngine, err)
	}

	data, err := engine.CheckLen(kb)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

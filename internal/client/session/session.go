// Package session holds the client's login state. A Session is created once
// per login and handed explicitly to whatever needs the credential; nothing
// reads it from a global.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/filex"
)

// ErrNoSession means nobody is logged in.
var ErrNoSession = fmt.Errorf("%w: not logged in", common.ErrUnauthenticated)

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FromToken builds a session from a credential the server just issued. The
// signature is not checked here; the server and the KDC do that.
func FromToken(token string) (*Session, error) {
	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing identity", common.ErrInvalidToken)
	}

	s := &Session{
		Token:  strings.TrimSpace(token),
		UserID: claims.UserID,
		Email:  claims.Email,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the credential is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Save writes s to path, readable by the owner only.
func Save(path string, s *Session) error {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return filex.WriteNew(path, data, 0o600, true)
}

// Load reads the session saved at path. A missing file is ErrNoSession; an
// expired session is common.ErrTokenExpired.
func Load(path string, now time.Time) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil || s.Token == "" {
		return nil, fmt.Errorf("%w: unreadable session file %s", common.ErrInvalidToken, path)
	}
	if s.Expired(now) {
		return nil, common.ErrTokenExpired
	}
	return s, nil
}

// Clear removes the saved session. Clearing a missing session is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

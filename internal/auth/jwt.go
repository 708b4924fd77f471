// Package auth issues and verifies session credentials: HS256 JWTs binding
// a user id and canonical email to an expiry. The main service issues them
// at login; the main service and the KDC each verify them independently
// with the shared secret.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the "iss" claim of every session credential.
const Issuer = "docseal"

// Claims binds an identity to a session credential. Subject carries the
// email as well so generic JWT tooling shows the principal.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

// GenerateToken signs a credential for the given user that expires after
// validityDuration.
func GenerateToken(userID, email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature, algorithm, issuer and expiry. An expired
// credential yields common.ErrTokenExpired; every other failure yields an
// error matching common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty", common.ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Email == "" || claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing identity", common.ErrInvalidToken)
	}

	return claims, nil
}

// ParseUnverified decodes the claims without checking the signature. Only
// the client uses it, to learn its own identity from a token it was handed.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(tokenString), claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return claims, nil
}

// Package identity canonicalises the email addresses that name docseal
// principals. The canonical form doubles as the public key input to the
// identity-based engine, so every service must agree on it.
package identity

import (
	"net/mail"
	"strings"
)

// Normalize trims and lowercases an address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks that email is already canonical, parses as a bare address
// and belongs to domain (when domain is non-empty). It returns the problems
// found, or nil.
func Validate(email, domain string) []string {
	if email == "" {
		return []string{"email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || strings.ToLower(addr.Address) != email {
		return []string{"email is not a valid address"}
	}
	if domain != "" && !strings.HasSuffix(email, "@"+strings.ToLower(domain)) {
		return []string{"email must belong to @" + strings.ToLower(domain)}
	}
	return nil
}

// IsCanonical reports whether email is a canonical, well-formed address in
// any domain.
func IsCanonical(email string) bool {
	return Normalize(email) == email && Validate(email, "") == nil
}

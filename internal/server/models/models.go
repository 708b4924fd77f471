// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a confirmed account. Email is the canonical identity.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// PendingRegistration is an unconfirmed account waiting for its one-time
// code. There is at most one per email.
type PendingRegistration struct {
	Email        string
	Name         string
	PasswordHash string
	OTPHash      string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether the code can no longer be used at now.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Document is an immutable stored envelope. Exactly one of Envelope and
// StorageKey is set: Envelope when bytes live in the row, StorageKey when
// they live in object storage.
type Document struct {
	ID               string
	OriginalFileName string
	SenderID         string
	RecipientID      string
	Envelope         []byte
	StorageKey       string
	Size             int64
	CreatedAt        time.Time
}

// DocumentSummary is what an inbox listing shows. It never carries envelope
// bytes.
type DocumentSummary struct {
	ID               string
	OriginalFileName string
	SenderID         string
	Size             int64
	CreatedAt        time.Time
}

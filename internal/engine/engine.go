// Package engine is the boundary to the identity-based cryptographic engine.
//
// The engine owns the memory behind every Buffer it hands out. Callers must
// release each buffer exactly once with Free, on success and failure paths
// alike; Scope makes that mechanical. Engines are not reentrant: at most one
// call may be in flight per instance, which Serialized guarantees.
//
// Every structural length (signature size, envelope size, split point) is an
// output of the engine. Nothing outside an engine implementation may assume
// one.
package engine

import (
	"fmt"

	"github.com/dmitrijs2005/docseal/internal/common"
)

// Buffer is a region of engine-owned memory.
type Buffer interface {
	// Bytes returns the buffer contents. The slice aliases engine memory
	// and must not be used after Free.
	Bytes() []byte
	// Len is the length the engine reports for this buffer.
	Len() int
	// Free releases the buffer. Calling it more than once is harmless.
	Free()
}

// Verdict is the result of signature verification.
type Verdict int

const (
	Valid   Verdict = 0
	Invalid Verdict = 1
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("error(%d)", int(v))
	}
}

// Engine is the set of primitives docseal needs from the cryptosystem.
type Engine interface {
	// Load copies data into a new engine buffer.
	Load(data []byte) (Buffer, error)

	// Extract derives the private key for identity from the master secret.
	// It is deterministic: equal inputs give byte-identical keys.
	Extract(master, identity Buffer) (Buffer, error)

	// Sign signs msg with a private key. The signature length is the
	// returned buffer's Len.
	Sign(key, msg Buffer) (Buffer, error)

	// Encrypt encrypts plaintext to identity under the public parameters.
	// The envelope length is the returned buffer's Len.
	Encrypt(params, identity, plaintext Buffer) (Buffer, error)

	// Decrypt opens an envelope and reports how many trailing bytes of the
	// plaintext are the sender's signature.
	Decrypt(key, envelope Buffer) (plaintext Buffer, sigLen int, err error)

	// Verify checks sig over msg for the signer identity. A signature that
	// does not verify, or does not decode, is Invalid with a nil error;
	// a non-nil error means the engine could not decide.
	Verify(params, identity, msg, sig Buffer) (Verdict, error)
}

// CheckLen validates an engine-reported output length against the bytes
// the buffer actually exposes.
func CheckLen(b Buffer) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil buffer", common.ErrEngine)
	}
	n := b.Len()
	data := b.Bytes()
	if n <= 0 || n > len(data) {
		return nil, fmt.Errorf("%w: implausible length %d for %d-byte buffer", common.ErrEngine, n, len(data))
	}
	return data[:n], nil
}

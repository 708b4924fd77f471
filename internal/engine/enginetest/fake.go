// Package enginetest provides an in-memory engine.Engine for tests. It is
// not cryptographically meaningful; it exists to exercise buffer lifetimes,
// reported lengths and failure paths.
package enginetest

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/engine"
)

// Op names an engine operation for fault injection.
type Op string

const (
	OpLoad    Op = "load"
	OpExtract Op = "extract"
	OpSign    Op = "sign"
	OpEncrypt Op = "encrypt"
	OpDecrypt Op = "decrypt"
	OpVerify  Op = "verify"
)

var ErrInjected = fmt.Errorf("%w: injected failure", common.ErrEngine)

var keyPrefix = []byte("fake-key:")

// Fake is a deterministic engine. The private key for an identity is the
// identity with a prefix, signatures are SHA-256 over identity and message,
// and envelopes carry the recipient identity in clear.
type Fake struct {
	mu   sync.Mutex
	live map[*buffer]struct{}

	// Fail makes the named operation return ErrInjected.
	Fail map[Op]bool
	// FailAfterLoads makes Load fail once this many loads succeeded (0 = never).
	FailAfterLoads int
	// SigLen, when non-zero, replaces the signature length Decrypt reports.
	SigLen int
	// OutLen, when set, replaces the Len reported by buffers from that op.
	OutLen map[Op]int
	// VerdictOverride, when non-nil, is returned by Verify.
	VerdictOverride *engine.Verdict
	// Delay is slept inside every operation.
	Delay time.Duration

	loads    int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    []Op
}

func New() *Fake {
	return &Fake{live: map[*buffer]struct{}{}, Fail: map[Op]bool{}, OutLen: map[Op]int{}}
}

// SigSize is the length of every signature the fake produces.
func (f *Fake) SigSize() int { return sha256.Size }

// Live returns the number of buffers not yet freed.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// MaxInFlight returns the highest number of concurrent calls observed.
func (f *Fake) MaxInFlight() int { return int(f.maxSeen.Load()) }

// Calls returns the operations invoked so far, in order. Loads are omitted.
func (f *Fake) Calls() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Op(nil), f.calls...)
}

type buffer struct {
	f    *Fake
	data []byte
	n    int
	once sync.Once
}

func (b *buffer) Bytes() []byte { return b.data }
func (b *buffer) Len() int      { return b.n }

func (b *buffer) Free() {
	b.once.Do(func() {
		b.f.mu.Lock()
		delete(b.f.live, b)
		b.f.mu.Unlock()
		common.WipeByteArray(b.data)
	})
}

func (f *Fake) enter(op Op) func() {
	n := f.inFlight.Add(1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if op != OpLoad {
		f.mu.Lock()
		f.calls = append(f.calls, op)
		f.mu.Unlock()
	}
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *Fake) alloc(op Op, data []byte) *buffer {
	b := &buffer{f: f, data: data, n: len(data)}
	if n, ok := f.OutLen[op]; ok {
		b.n = n
	}
	f.mu.Lock()
	f.live[b] = struct{}{}
	f.mu.Unlock()
	return b
}

func raw(b engine.Buffer) []byte {
	if b == nil {
		return nil
	}
	data := b.Bytes()
	if n := b.Len(); n >= 0 && n <= len(data) {
		return data[:n]
	}
	return data
}

func (f *Fake) Load(data []byte) (engine.Buffer, error) {
	defer f.enter(OpLoad)()
	if f.Fail[OpLoad] {
		return nil, ErrInjected
	}
	f.mu.Lock()
	if f.FailAfterLoads > 0 && f.loads >= f.FailAfterLoads {
		f.mu.Unlock()
		return nil, ErrInjected
	}
	f.loads++
	f.mu.Unlock()
	return f.alloc(OpLoad, bytes.Clone(data)), nil
}

func (f *Fake) Extract(master, identity engine.Buffer) (engine.Buffer, error) {
	defer f.enter(OpExtract)()
	if f.Fail[OpExtract] {
		return nil, ErrInjected
	}
	return f.alloc(OpExtract, append(bytes.Clone(keyPrefix), raw(identity)...)), nil
}

// KeyFor returns the private key bytes the fake derives for identity.
func KeyFor(identity string) []byte {
	return append(bytes.Clone(keyPrefix), identity...)
}

func sigOver(identity, msg []byte) []byte {
	h := sha256.New()
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(identity)))
	h.Write(l[:])
	h.Write(identity)
	h.Write(msg)
	return h.Sum(nil)
}

func identityOfKey(key []byte) ([]byte, error) {
	if !bytes.HasPrefix(key, keyPrefix) {
		return nil, fmt.Errorf("%w: not a private key", common.ErrEngine)
	}
	return key[len(keyPrefix):], nil
}

func (f *Fake) Sign(key, msg engine.Buffer) (engine.Buffer, error) {
	defer f.enter(OpSign)()
	if f.Fail[OpSign] {
		return nil, ErrInjected
	}
	id, err := identityOfKey(raw(key))
	if err != nil {
		return nil, err
	}
	return f.alloc(OpSign, sigOver(id, raw(msg))), nil
}

func (f *Fake) Encrypt(params, identity, plaintext engine.Buffer) (engine.Buffer, error) {
	defer f.enter(OpEncrypt)()
	if f.Fail[OpEncrypt] {
		return nil, ErrInjected
	}
	id := raw(identity)
	out := make([]byte, 2, 2+len(id)+len(raw(plaintext)))
	binary.BigEndian.PutUint16(out, uint16(len(id)))
	out = append(out, id...)
	out = append(out, raw(plaintext)...)
	return f.alloc(OpEncrypt, out), nil
}

func (f *Fake) Decrypt(key, envelope engine.Buffer) (engine.Buffer, int, error) {
	defer f.enter(OpDecrypt)()
	if f.Fail[OpDecrypt] {
		return nil, 0, ErrInjected
	}
	id, err := identityOfKey(raw(key))
	if err != nil {
		return nil, 0, err
	}
	env := raw(envelope)
	if len(env) < 2 {
		return nil, 0, common.ErrCorruptEnvelope
	}
	n := int(binary.BigEndian.Uint16(env))
	if len(env) < 2+n || !bytes.Equal(env[2:2+n], id) {
		return nil, 0, common.ErrCorruptEnvelope
	}
	sigLen := f.SigSize()
	if f.SigLen != 0 {
		sigLen = f.SigLen
	}
	return f.alloc(OpDecrypt, bytes.Clone(env[2+n:])), sigLen, nil
}

func (f *Fake) Verify(params, identity, msg, sig engine.Buffer) (engine.Verdict, error) {
	defer f.enter(OpVerify)()
	if f.Fail[OpVerify] {
		return engine.Verdict(-1), ErrInjected
	}
	if f.VerdictOverride != nil {
		return *f.VerdictOverride, nil
	}
	if bytes.Equal(sigOver(raw(identity), raw(msg)), raw(sig)) {
		return engine.Valid, nil
	}
	return engine.Invalid, nil
}

// Package bls is the bundled identity-based engine, built on the BLS12-381
// pairing from cloudflare/circl.
//
// Keys and identities:
//
//	Q_id = H1(identity)          in G1 (hash-to-curve)
//	Ppub = s * g2                public parameters
//	d_id = s * Q_id              private key, deterministic in (s, identity)
//
// Signatures follow Cha-Cheon: U = r*Q_id, h = H2(msg, U), V = (r+h)*d_id,
// accepted when e(V, g2) == e(U + h*Q_id, Ppub).
//
// Encryption is hybrid Boneh-Franklin: U = r*g2, the pairing value
// e(Q_id, r*Ppub) == e(d_id, U) is run through HKDF-SHA256 into an
// AES-256-GCM key.
package bls

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cloudflare/circl/ecc/bls12381"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/engine"
)

const (
	version = 1

	masterSize = 1 + bls12381.ScalarSize
	paramsSize = 1 + bls12381.G2SizeCompressed
	sigSize    = 1 + 2*bls12381.G1SizeCompressed
	headerSize = 1 + bls12381.G2SizeCompressed

	maxIdentity = 1<<16 - 1
)

var (
	dstIdentity = []byte("DOCSEAL-V01-CS01-with-BLS12381G1_XMD:SHA-256_SSWU_RO_ID_")
	dstSign     = []byte("DOCSEAL-V01-SIG-H2")
	kdfInfo     = []byte("docseal-ibe-v1 aes-256-gcm")
)

var (
	ErrReentrant     = fmt.Errorf("%w: concurrent call into engine", common.ErrEngine)
	ErrFreed         = fmt.Errorf("%w: buffer already freed", common.ErrEngine)
	ErrForeignBuffer = fmt.Errorf("%w: buffer not owned by this engine", common.ErrEngine)
	ErrMalformed     = fmt.Errorf("%w: malformed input", common.ErrEngine)
)

// Engine implements engine.Engine. It is not reentrant; concurrent calls
// fail with ErrReentrant. Wrap it with engine.Serialized when it is shared.
type Engine struct {
	rand io.Reader

	busy atomic.Bool

	mu   sync.Mutex
	next uint64
	mem  map[uint64]*buffer
}

// New returns an engine drawing randomness from r.
func New(r io.Reader) *Engine {
	return &Engine{rand: r, mem: map[uint64]*buffer{}}
}

// Live returns how many buffers are allocated and not yet freed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.mem)
}

func (e *Engine) enter() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	return nil
}

func (e *Engine) leave() {
	e.busy.Store(false)
}

type buffer struct {
	e      *Engine
	handle uint64
	data   []byte
}

func (b *buffer) Bytes() []byte {
	return b.data
}

func (b *buffer) Len() int {
	return len(b.data)
}

func (b *buffer) Free() {
	b.e.mu.Lock()
	defer b.e.mu.Unlock()
	if _, ok := b.e.mem[b.handle]; !ok {
		return
	}
	delete(b.e.mem, b.handle)
	common.WipeByteArray(b.data)
	b.data = nil
}

func (e *Engine) alloc(data []byte) *buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	b := &buffer{e: e, handle: e.next, data: data}
	e.mem[b.handle] = b
	return b
}

// view returns the live contents of a buffer this engine allocated.
func (e *Engine) view(b engine.Buffer) ([]byte, error) {
	own, ok := b.(*buffer)
	if !ok || own == nil || own.e != e {
		return nil, ErrForeignBuffer
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.mem[own.handle]; !ok {
		return nil, ErrFreed
	}
	return own.data, nil
}

func (e *Engine) Load(data []byte) (engine.Buffer, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()
	return e.alloc(bytes.Clone(data)), nil
}

func (e *Engine) Extract(master, identity engine.Buffer) (engine.Buffer, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	m, err := e.view(master)
	if err != nil {
		return nil, err
	}
	id, err := e.view(identity)
	if err != nil {
		return nil, err
	}
	s, err := decodeMaster(m)
	if err != nil {
		return nil, err
	}
	if len(id) == 0 || len(id) > maxIdentity {
		return nil, fmt.Errorf("%w: identity length %d", ErrMalformed, len(id))
	}

	d := new(bls12381.G1)
	d.ScalarMult(s, hashIdentity(id))

	return e.alloc(encodeKey(id, d)), nil
}

func (e *Engine) Sign(key, msg engine.Buffer) (engine.Buffer, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	k, err := e.view(key)
	if err != nil {
		return nil, err
	}
	m, err := e.view(msg)
	if err != nil {
		return nil, err
	}
	id, d, err := decodeKey(k)
	if err != nil {
		return nil, err
	}

	q := hashIdentity(id)

	r := new(bls12381.Scalar)
	if err := randomScalar(e.rand, r); err != nil {
		return nil, err
	}
	u := new(bls12381.G1)
	u.ScalarMult(r, q)

	h := challenge(m, u)
	rh := new(bls12381.Scalar)
	rh.Add(r, h)

	v := new(bls12381.G1)
	v.ScalarMult(rh, d)

	sig := make([]byte, 0, sigSize)
	sig = append(sig, version)
	sig = append(sig, u.BytesCompressed()...)
	sig = append(sig, v.BytesCompressed()...)

	return e.alloc(sig), nil
}

func (e *Engine) Verify(params, identity, msg, sig engine.Buffer) (engine.Verdict, error) {
	if err := e.enter(); err != nil {
		return engine.Verdict(-1), err
	}
	defer e.leave()

	p, err := e.view(params)
	if err != nil {
		return engine.Verdict(-1), err
	}
	id, err := e.view(identity)
	if err != nil {
		return engine.Verdict(-1), err
	}
	m, err := e.view(msg)
	if err != nil {
		return engine.Verdict(-1), err
	}
	sg, err := e.view(sig)
	if err != nil {
		return engine.Verdict(-1), err
	}
	ppub, err := decodeParams(p)
	if err != nil {
		return engine.Verdict(-1), err
	}
	if len(id) == 0 {
		return engine.Verdict(-1), fmt.Errorf("%w: empty identity", ErrMalformed)
	}

	u, v, ok := decodeSignature(sg)
	if !ok {
		return engine.Invalid, nil
	}

	q := hashIdentity(id)
	h := challenge(m, u)

	hq := new(bls12381.G1)
	hq.ScalarMult(h, q)
	hq.Add(u, hq)

	left := bls12381.Pair(v, bls12381.G2Generator())
	right := bls12381.Pair(hq, ppub)
	if left.IsEqual(right) {
		return engine.Valid, nil
	}
	return engine.Invalid, nil
}

func (e *Engine) Encrypt(params, identity, plaintext engine.Buffer) (engine.Buffer, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	p, err := e.view(params)
	if err != nil {
		return nil, err
	}
	id, err := e.view(identity)
	if err != nil {
		return nil, err
	}
	pt, err := e.view(plaintext)
	if err != nil {
		return nil, err
	}
	ppub, err := decodeParams(p)
	if err != nil {
		return nil, err
	}
	if len(id) == 0 {
		return nil, fmt.Errorf("%w: empty identity", ErrMalformed)
	}

	r := new(bls12381.Scalar)
	if err := randomScalar(e.rand, r); err != nil {
		return nil, err
	}

	u := new(bls12381.G2)
	u.ScalarMult(r, bls12381.G2Generator())

	rp := new(bls12381.G2)
	rp.ScalarMult(r, ppub)

	header := make([]byte, 0, headerSize)
	header = append(header, version)
	header = append(header, u.BytesCompressed()...)

	key, err := sessionKey(bls12381.Pair(hashIdentity(id), rp), header)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	ct, nonce, err := seal(key, pt, header)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(header)+len(nonce)+len(ct))
	out = append(out, header...)
	out = append(out, nonce...)
	out = append(out, ct...)

	return e.alloc(out), nil
}

func (e *Engine) Decrypt(key, envelope engine.Buffer) (engine.Buffer, int, error) {
	if err := e.enter(); err != nil {
		return nil, 0, err
	}
	defer e.leave()

	k, err := e.view(key)
	if err != nil {
		return nil, 0, err
	}
	env, err := e.view(envelope)
	if err != nil {
		return nil, 0, err
	}
	_, d, err := decodeKey(k)
	if err != nil {
		return nil, 0, err
	}

	if len(env) < headerSize+nonceSize() || env[0] != version {
		return nil, 0, common.ErrCorruptEnvelope
	}
	header := env[:headerSize]
	u := new(bls12381.G2)
	if err := u.SetBytes(header[1:]); err != nil {
		return nil, 0, common.ErrCorruptEnvelope
	}

	sk, err := sessionKey(bls12381.Pair(d, u), header)
	if err != nil {
		return nil, 0, err
	}
	defer common.WipeByteArray(sk)

	nonce := env[headerSize : headerSize+nonceSize()]
	pt, err := open(sk, nonce, env[headerSize+nonceSize():], header)
	if err != nil {
		return nil, 0, common.ErrCorruptEnvelope
	}

	return e.alloc(pt), sigSize, nil
}

// Setup generates a fresh master secret and the matching public parameters.
func Setup(r io.Reader) (master, params []byte, err error) {
	s := new(bls12381.Scalar)
	if err := randomScalar(r, s); err != nil {
		return nil, nil, err
	}
	master, err = encodeMaster(s)
	if err != nil {
		return nil, nil, err
	}
	return master, paramsFor(s), nil
}

// PublicParams recomputes the public parameters belonging to a master secret.
func PublicParams(master []byte) ([]byte, error) {
	s, err := decodeMaster(master)
	if err != nil {
		return nil, err
	}
	return paramsFor(s), nil
}

// ValidateParams checks that params decode as public parameters.
func ValidateParams(params []byte) error {
	_, err := decodeParams(params)
	return err
}

func paramsFor(s *bls12381.Scalar) []byte {
	ppub := new(bls12381.G2)
	ppub.ScalarMult(s, bls12381.G2Generator())
	return append([]byte{version}, ppub.BytesCompressed()...)
}

func randomScalar(r io.Reader, s *bls12381.Scalar) error {
	for {
		if err := s.Random(r); err != nil {
			return fmt.Errorf("%w: random: %v", common.ErrEngine, err)
		}
		if s.IsZero() == 0 {
			return nil
		}
	}
}

func hashIdentity(id []byte) *bls12381.G1 {
	q := new(bls12381.G1)
	q.Hash(id, dstIdentity)
	return q
}

func encodeMaster(s *bls12381.Scalar) ([]byte, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEngine, err)
	}
	return append([]byte{version}, b...), nil
}

func decodeMaster(b []byte) (*bls12381.Scalar, error) {
	if len(b) != masterSize || b[0] != version {
		return nil, fmt.Errorf("%w: master secret", ErrMalformed)
	}
	s := new(bls12381.Scalar)
	if err := s.UnmarshalBinary(b[1:]); err != nil || s.IsZero() == 1 {
		return nil, fmt.Errorf("%w: master secret", ErrMalformed)
	}
	return s, nil
}

func decodeParams(b []byte) (*bls12381.G2, error) {
	if len(b) != paramsSize || b[0] != version {
		return nil, fmt.Errorf("%w: public parameters", ErrMalformed)
	}
	p := new(bls12381.G2)
	if err := p.SetBytes(b[1:]); err != nil || p.IsIdentity() {
		return nil, fmt.Errorf("%w: public parameters", ErrMalformed)
	}
	return p, nil
}

// Private key layout: version | uint16 identity length | identity | d_id.
func encodeKey(id []byte, d *bls12381.G1) []byte {
	out := make([]byte, 3, 3+len(id)+bls12381.G1SizeCompressed)
	out[0] = version
	binary.BigEndian.PutUint16(out[1:3], uint16(len(id)))
	out = append(out, id...)
	return append(out, d.BytesCompressed()...)
}

func decodeKey(b []byte) ([]byte, *bls12381.G1, error) {
	if len(b) < 3 || b[0] != version {
		return nil, nil, fmt.Errorf("%w: private key", ErrMalformed)
	}
	n := int(binary.BigEndian.Uint16(b[1:3]))
	if n == 0 || len(b) != 3+n+bls12381.G1SizeCompressed {
		return nil, nil, fmt.Errorf("%w: private key", ErrMalformed)
	}
	d := new(bls12381.G1)
	if err := d.SetBytes(b[3+n:]); err != nil {
		return nil, nil, fmt.Errorf("%w: private key", ErrMalformed)
	}
	return b[3 : 3+n], d, nil
}

func decodeSignature(b []byte) (u, v *bls12381.G1, ok bool) {
	if len(b) != sigSize || b[0] != version {
		return nil, nil, false
	}
	u, v = new(bls12381.G1), new(bls12381.G1)
	if u.SetBytes(b[1:1+bls12381.G1SizeCompressed]) != nil {
		return nil, nil, false
	}
	if v.SetBytes(b[1+bls12381.G1SizeCompressed:]) != nil {
		return nil, nil, false
	}
	return u, v, true
}

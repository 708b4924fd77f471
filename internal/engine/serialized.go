package engine

import "sync"

// Serialized wraps e so that at most one call, Free included, is in flight
// at a time. Buffers returned by the wrapper must only be passed back to the
// same wrapper.
func Serialized(e Engine) Engine {
	if s, ok := e.(*serialized); ok {
		return s
	}
	return &serialized{inner: e}
}

type serialized struct {
	mu    sync.Mutex
	inner Engine
}

type serialBuffer struct {
	s     *serialized
	inner Buffer
}

func (b *serialBuffer) Bytes() []byte { return b.inner.Bytes() }
func (b *serialBuffer) Len() int      { return b.inner.Len() }

func (b *serialBuffer) Free() {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.inner.Free()
}

func (s *serialized) wrap(b Buffer) Buffer {
	if b == nil {
		return nil
	}
	return &serialBuffer{s: s, inner: b}
}

func unwrap(b Buffer) Buffer {
	if sb, ok := b.(*serialBuffer); ok {
		return sb.inner
	}
	return b
}

func (s *serialized) Load(data []byte) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.inner.Load(data)
	return s.wrap(b), err
}

func (s *serialized) Extract(master, identity Buffer) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.inner.Extract(unwrap(master), unwrap(identity))
	return s.wrap(b), err
}

func (s *serialized) Sign(key, msg Buffer) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.inner.Sign(unwrap(key), unwrap(msg))
	return s.wrap(b), err
}

func (s *serialized) Encrypt(params, identity, plaintext Buffer) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.inner.Encrypt(unwrap(params), unwrap(identity), unwrap(plaintext))
	return s.wrap(b), err
}

func (s *serialized) Decrypt(key, envelope Buffer) (Buffer, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, n, err := s.inner.Decrypt(unwrap(key), unwrap(envelope))
	return s.wrap(b), n, err
}

func (s *serialized) Verify(params, identity, msg, sig Buffer) (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Verify(unwrap(params), unwrap(identity), unwrap(msg), unwrap(sig))
}

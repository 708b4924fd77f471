package engine

import "sync"

// Scope tracks engine buffers and frees all of them on Close, newest first.
//
//	s := engine.NewScope(e)
//	defer s.Close()
//	key, err := s.Load(raw)
type Scope struct {
	e    Engine
	mu   sync.Mutex
	bufs []Buffer
	done bool
}

func NewScope(e Engine) *Scope {
	return &Scope{e: e}
}

// Load copies data into the engine and tracks the new buffer.
func (s *Scope) Load(data []byte) (Buffer, error) {
	b, err := s.e.Load(data)
	if err != nil {
		return nil, err
	}
	return s.Track(b), nil
}

// Track registers b for release and returns it. A nil buffer is ignored.
// Buffers tracked after Close are freed immediately.
func (s *Scope) Track(b Buffer) Buffer {
	if b == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		b.Free()
		return b
	}
	s.bufs = append(s.bufs, b)
	return b
}

// Len reports how many buffers are currently held.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bufs)
}

// Close frees every tracked buffer. It is safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	bufs := s.bufs
	s.bufs = nil
	s.done = true
	s.mu.Unlock()

	for i := len(bufs) - 1; i >= 0; i-- {
		bufs[i].Free()
	}
}

// Package render delivers streamed review text to a display surface that may
// not be ready yet. Operations issued before the surface attaches are queued
// and replayed in order.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSessionClosed   = errors.New("render session closed")
	ErrAlreadyAttached = errors.New("render session already has a surface")
)

type OpKind int

const (
	// OpAppend adds text after the current content.
	OpAppend OpKind = iota
	// OpReplace clears the surface and sets its content.
	OpReplace
)

func (k OpKind) String() string {
	switch k {
	case OpAppend:
		return "append"
	case OpReplace:
		return "replace"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

type Op struct {
	Kind OpKind
	Text string
}

// Surface displays review text. Deliver is called with the session lock held
// and must not call back into the session.
type Surface interface {
	Deliver(op Op) error
}

// Session connects one review invocation to one surface.
type Session struct {
	id string

	mu       sync.Mutex
	surface  Surface
	pending  []Op
	onReady  []func()
	closed   bool
	ready    chan struct{}
	done     chan struct{}
	closeErr error
}

func NewSession(id string) *Session {
	return &Session{
		id:    id,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Attach is the surface's readiness signal. Queued operations are delivered
// before Attach returns, so anything issued concurrently lands after them.
func (s *Session) Attach(surface Surface) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.surface != nil {
		s.mu.Unlock()
		return ErrAlreadyAttached
	}

	s.surface = surface
	for _, op := range s.pending {
		if err := surface.Deliver(op); err != nil {
			s.closeLocked(err)
			s.mu.Unlock()
			return fmt.Errorf("failed to flush %s: %w", op.Kind, err)
		}
	}
	s.pending = nil
	close(s.ready)

	callbacks := s.onReady
	s.onReady = nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnReady registers fn to run once the surface attaches. If it already has,
// fn runs immediately.
func (s *Session) OnReady(fn func()) {
	s.mu.Lock()
	if s.surface == nil && !s.closed {
		s.onReady = append(s.onReady, fn)
		s.mu.Unlock()
		return
	}
	attached := s.surface != nil
	s.mu.Unlock()

	if attached {
		fn()
	}
}

// Ready is closed when a surface attaches.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// IsReady reports whether a surface has attached.
func (s *Session) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface != nil
}

// WaitReady blocks until a surface attaches, the session closes, or ctx ends.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Append(text string) error {
	return s.deliver(Op{Kind: OpAppend, Text: text})
}

func (s *Session) Replace(text string) error {
	return s.deliver(Op{Kind: OpReplace, Text: text})
}

func (s *Session) deliver(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.surface == nil {
		s.pending = append(s.pending, op)
		return nil
	}
	if err := s.surface.Deliver(op); err != nil {
		s.closeLocked(err)
		return fmt.Errorf("failed to deliver %s: %w", op.Kind, err)
	}
	return nil
}

// Close discards queued operations. It is safe to call more than once.
func (s *Session) Close() {
	s.CloseWithError(nil)
}

// CloseWithError closes the session and records why the invocation ended.
// Only the first close records its cause.
func (s *Session) CloseWithError(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(cause)
}

// Err returns the error that closed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

func (s *Session) closeLocked(cause error) {
	if s.closed {
		return
	}
	s.closed = true
	s.closeErr = cause
	s.pending = nil
	s.onReady = nil
	close(s.done)
}

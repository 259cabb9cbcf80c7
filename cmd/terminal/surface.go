package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/diffwarden/internal/render"
)

// teaSurface buffers operations in an ordered outbox that the bubbletea loop
// drains with waitForOps. Deliver never blocks the streaming goroutine.
type teaSurface struct {
	mu     sync.Mutex
	outbox []render.Op
	notify chan struct{}
}

func newTeaSurface() *teaSurface {
	return &teaSurface{notify: make(chan struct{}, 1)}
}

func (s *teaSurface) Deliver(op render.Op) error {
	s.mu.Lock()
	s.outbox = append(s.outbox, op)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *teaSurface) drain() []render.Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.outbox
	s.outbox = nil
	return ops
}

// waitForOps returns the next batch of operations, or surfaceClosedMsg once
// the session has ended and the outbox is empty.
func waitForOps(s *teaSurface, session *render.Session) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-s.notify:
			case <-session.Done():
			}
			if ops := s.drain(); len(ops) > 0 {
				return opsMsg{session: session, ops: ops}
			}
			select {
			case <-session.Done():
				return surfaceClosedMsg{session: session}
			default:
			}
		}
	}
}

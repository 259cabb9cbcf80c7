package render

import (
	"io"
	"strings"
	"sync"
)

// WriterSurface prints appended text as it arrives and keeps the full
// content. A stream cannot be rewound, so Replace resets the kept content and
// prints the new text.
type WriterSurface struct {
	mu      sync.Mutex
	w       io.Writer
	content strings.Builder
}

func NewWriterSurface(w io.Writer) *WriterSurface {
	return &WriterSurface{w: w}
}

func (s *WriterSurface) Deliver(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.Kind == OpReplace {
		s.content.Reset()
	}
	s.content.WriteString(op.Text)
	if op.Text == "" {
		return nil
	}
	_, err := io.WriteString(s.w, op.Text)
	return err
}

// Content returns everything delivered since the last Replace.
func (s *WriterSurface) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String()
}

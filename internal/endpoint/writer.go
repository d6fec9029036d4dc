package endpoint

import (
	"fmt"
	"io"
)

// WriterSink forwards bytes to an io.Writer and flushes after every byte when
// the writer is buffered.
type WriterSink struct {
	w   io.Writer
	buf [1]uint8
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Put(b uint8) error {
	s.buf[0] = b

	if _, err := s.w.Write(s.buf[:]); err != nil {
		return fmt.Errorf("failed to write byte $%02x: %w", b, err)
	}

	return s.Flush()
}

// Flush drains a buffered writer. Files are written unbuffered and are
// never synced to disk.
func (s *WriterSink) Flush() error {
	if w, ok := s.w.(interface{ Flush() error }); ok {
		return w.Flush()
	}

	return nil
}

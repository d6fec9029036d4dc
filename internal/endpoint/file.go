package endpoint

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/cterence/uartemu/internal/log"
	"github.com/cterence/uartemu/internal/machine/components/uart"
)

// FileSource reads inbound bytes from a file descriptor. Readiness is probed
// without blocking, so a pipe or terminal with nothing to read is simply not
// ready yet.
type FileSource struct {
	f         *os.File
	r         *bufio.Reader
	exhausted bool
}

// inputSource picks a source for f that never blocks the UART. Without poll,
// anything but a regular file is read by a pump goroutine instead.
func inputSource(f *os.File, canPoll bool) uart.Source {
	if canPoll {
		return NewFileSource(f)
	}

	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		return NewFileSource(f)
	}

	return NewPump(f)
}

func NewFileSource(f *os.File) *FileSource {
	return &FileSource{
		f: f,
		r: bufio.NewReader(f),
	}
}

func (s *FileSource) Next() (uint8, bool) {
	if !s.Ready() {
		return 0, false
	}

	b, err := s.r.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Warn("[endpoint] read error on %s: %v", s.f.Name(), err)
		}

		s.exhausted = true

		return 0, false
	}

	return b, true
}

func (s *FileSource) Ready() bool {
	if s.exhausted {
		return false
	}

	if s.r.Buffered() > 0 {
		return true
	}

	return pollReadable(s.f)
}

func (s *FileSource) Exhausted() bool {
	return s.exhausted
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

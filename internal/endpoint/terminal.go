package endpoint

import (
	"fmt"
	"os"

	"github.com/cterence/uartemu/internal/machine/components/uart"
	"golang.org/x/term"
)

// Ctrl-] ends a raw terminal session, as in telnet.
const ESCAPE_BYTE = 0x1D

// Terminal connects the UART to the controlling terminal. When stdin is a tty
// it is switched to raw mode so every key press reaches the receiver.
type Terminal struct {
	*WriterSink

	source   uart.Source
	in       *os.File
	oldState *term.State
	escaped  bool
}

func OpenTerminal(in, out *os.File) (*Terminal, error) {
	t := &Terminal{
		WriterSink: NewWriterSink(out),
		source:     inputSource(in, pollSupported),
		in:         in,
	}

	if !term.IsTerminal(int(in.Fd())) {
		return t, nil
	}

	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to set raw terminal mode: %w", err)
	}

	t.oldState = state

	return t, nil
}

func (t *Terminal) Next() (uint8, bool) {
	if t.escaped {
		return 0, false
	}

	b, ok := t.source.Next()
	if ok && t.Raw() && b == ESCAPE_BYTE {
		t.escaped = true
		return 0, false
	}

	return b, ok
}

func (t *Terminal) Ready() bool {
	return !t.escaped && t.source.Ready()
}

func (t *Terminal) Exhausted() bool {
	return t.escaped || t.source.Exhausted()
}

func (t *Terminal) Raw() bool {
	return t.oldState != nil
}

// Close restores the terminal mode. Stdin and stdout stay open.
func (t *Terminal) Close() error {
	if t.oldState == nil {
		return nil
	}

	if err := term.Restore(int(t.in.Fd()), t.oldState); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}

	t.oldState = nil

	return nil
}

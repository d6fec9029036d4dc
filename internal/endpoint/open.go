package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cterence/uartemu/internal/machine/components/uart"
)

// Config selects where inbound bytes come from and where outbound bytes go.
// Port and WS replace In and Out when set.
type Config struct {
	In       string // file path, archive path or "-" for stdin
	Out      string // file path or "-" for stdout
	Port     string
	PortBaud int
	WS       string
}

// Endpoints is the source and sink pair handed to the UART, plus everything
// that has to be released afterwards.
type Endpoints struct {
	Source uart.Source
	Sink   uart.Sink

	closers []io.Closer
}

func Open(ctx context.Context, cfg Config) (*Endpoints, error) {
	e := &Endpoints{}

	switch {
	case cfg.Port != "":
		p, err := OpenSerialPort(cfg.Port, cfg.PortBaud)
		if err != nil {
			return nil, err
		}

		e.Source, e.Sink = p, p
		e.closers = append(e.closers, p)

		return e, nil
	case cfg.WS != "":
		ws, err := ListenWebsocket(ctx, cfg.WS)
		if err != nil {
			return nil, err
		}

		e.Source, e.Sink = ws, ws
		e.closers = append(e.closers, ws)

		return e, nil
	}

	if cfg.In == "-" && cfg.Out == "-" {
		t, err := OpenTerminal(os.Stdin, os.Stdout)
		if err != nil {
			return nil, err
		}

		e.Source, e.Sink = t, t
		e.closers = append(e.closers, t)

		return e, nil
	}

	if err := e.openIn(cfg.In); err != nil {
		return nil, errors.Join(err, e.Close())
	}

	if err := e.openOut(cfg.Out); err != nil {
		return nil, errors.Join(err, e.Close())
	}

	return e, nil
}

func (e *Endpoints) openIn(path string) error {
	switch {
	case path == "":
	case path == "-":
		e.Source = inputSource(os.Stdin, pollSupported)
	case IsArchive(path):
		data, err := LoadArchive(path)
		if err != nil {
			return fmt.Errorf("failed to load input archive: %w", err)
		}

		e.Source = NewBytesSource(data)
	default:
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}

		e.Source = inputSource(f, pollSupported)
		e.closers = append(e.closers, f)
	}

	return nil
}

func (e *Endpoints) openOut(path string) error {
	switch path {
	case "":
	case "-":
		e.Sink = NewWriterSink(os.Stdout)
	default:
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}

		e.Sink = NewWriterSink(f)
		e.closers = append(e.closers, f)
	}

	return nil
}

func (e *Endpoints) Close() error {
	var errs []error

	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}

	e.closers = nil

	return errors.Join(errs...)
}

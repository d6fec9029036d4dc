package endpoint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tarm/serial"
)

// SerialPort bridges the emulated UART to a host serial device.
type SerialPort struct {
	*ChanSource
	*WriterSink

	port *serial.Port
}

func OpenSerialPort(name string, baud int) (*SerialPort, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	return &SerialPort{
		ChanSource: NewPump(&timeoutReader{port: port}),
		// Port.Flush discards unsent output, keep it away from WriterSink
		WriterSink: NewWriterSink(struct{ io.Writer }{port}),
		port:       port,
	}, nil
}

func (p *SerialPort) Close() error {
	return p.port.Close()
}

// tarm/serial reports a read timeout as (0, io.EOF) on some platforms, which
// would stop the pump. Only a closed port ends the stream.
type timeoutReader struct {
	port *serial.Port
}

func (r *timeoutReader) Read(buf []uint8) (int, error) {
	for {
		n, err := r.port.Read(buf)
		if n > 0 || (err != nil && !isTimeout(err)) {
			return n, err
		}
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded)
}

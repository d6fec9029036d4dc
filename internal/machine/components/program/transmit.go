package program

import (
	"github.com/cterence/uartemu/internal/machine/components/uart"
)

// Transmit sends a fixed message. With polling it waits for the transmitter
// to go idle before each byte; without it writes one byte per access and
// overruns the UART whenever a byte is still in flight.
type Transmit struct {
	base

	message []uint8
	poll    bool
	pos     int
	writing bool
}

func (t *Transmit) Init(bus memoryBus, uartStart uint16, message []uint8, poll bool, options ...Option) {
	t.init(bus, uartStart, options...)
	t.message = message
	t.poll = poll
	t.pos = 0
	t.writing = !poll
}

func (t *Transmit) Step() int {
	if t.stepPrologue() {
		return CYCLES_PER_ACCESS
	}

	if t.Done() {
		return CYCLES_PER_ACCESS
	}

	if !t.writing {
		if t.status()&uart.STATUS_TX_BUSY == 0 {
			t.writing = true
		}

		return CYCLES_PER_ACCESS
	}

	t.Bus.Write(t.UART+uart.DATA, t.message[t.pos])
	t.pos++
	t.writing = !t.poll

	return CYCLES_PER_ACCESS
}

func (t *Transmit) Done() bool {
	return t.pos >= len(t.message)
}

// Sent is the number of bytes written to the data register, accepted or not.
func (t *Transmit) Sent() int {
	return t.pos
}

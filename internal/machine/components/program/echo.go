package program

import (
	"github.com/cterence/uartemu/internal/log"
	"github.com/cterence/uartemu/internal/machine/components/uart"
)

const (
	echoPoll = iota
	echoRead
	echoWrite
)

// Echo polls the status register, reads every received byte and sends it
// back once the transmitter is idle.
type Echo struct {
	base

	state   int
	held    uint8
	holding bool
	echoed  int
}

func (e *Echo) Init(bus memoryBus, uartStart uint16, options ...Option) {
	e.init(bus, uartStart, options...)
	e.state = echoPoll
	e.holding = false
	e.echoed = 0
}

func (e *Echo) Step() int {
	if e.stepPrologue() {
		return CYCLES_PER_ACCESS
	}

	switch e.state {
	case echoPoll:
		status := e.status()

		switch {
		case e.holding && status&uart.STATUS_TX_BUSY == 0:
			e.state = echoWrite
		case !e.holding && status&uart.STATUS_DATA_AVAILABLE != 0:
			e.state = echoRead
		}
	case echoRead:
		e.held = e.Bus.Read(e.UART + uart.DATA)
		e.holding = true
		e.state = echoPoll
	case echoWrite:
		e.Bus.Write(e.UART+uart.DATA, e.held)
		log.Debug("[echo] echoed $%02x", e.held)

		e.holding = false
		e.echoed++
		e.state = echoPoll
	}

	return CYCLES_PER_ACCESS
}

// Done reports whether no received byte is waiting to be sent back.
func (e *Echo) Done() bool {
	return !e.holding
}

func (e *Echo) Echoed() int {
	return e.echoed
}

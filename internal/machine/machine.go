package machine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cterence/uartemu/internal/lib"
	"github.com/cterence/uartemu/internal/log"
	"github.com/cterence/uartemu/internal/machine/components/bus"
	"github.com/cterence/uartemu/internal/machine/components/debugger"
	"github.com/cterence/uartemu/internal/machine/components/memory"
	"github.com/cterence/uartemu/internal/machine/components/program"
	"github.com/cterence/uartemu/internal/machine/components/uart"
)

const (
	FPS = 60

	FRAME_TIME = time.Second / FPS

	// Context is checked every CHECK_CYCLES host cycles
	CHECK_CYCLES = 1 << 14
)

type runner interface {
	Step() int
	Done() bool
}

type Result struct {
	Cycles   uint64
	Finished bool
	UART     uart.Stats
}

type Machine struct {
	memory   *memory.Memory
	bus      *bus.Bus
	uart     *uart.UART
	debugger *debugger.Debugger
	program  runner

	busOptions  []bus.Option
	uartOptions []uart.Option
	newProgram  func(m *Machine) runner

	// wait for the receiver to drain before finishing
	drain bool

	maxCycles uint64
	realtime  bool
	hostHz    int
	trace     io.Writer
}

type Option func(*Machine)

func WithUARTOptions(options ...uart.Option) Option {
	return func(m *Machine) {
		m.uartOptions = append(m.uartOptions, options...)
	}
}

func WithUARTStart(addr uint16) Option {
	return func(m *Machine) {
		m.busOptions = append(m.busOptions, bus.WithUARTStart(addr))
	}
}

// WithClocks sets both the UART clocks and the host rate used for real-time pacing.
func WithClocks(peripheralHz, hostHz int) Option {
	return func(m *Machine) {
		m.hostHz = hostHz
		m.uartOptions = append(m.uartOptions, uart.WithClocks(peripheralHz, hostHz))
	}
}

func WithEcho(options ...program.Option) Option {
	return func(m *Machine) {
		m.drain = true
		m.newProgram = func(m *Machine) runner {
			e := &program.Echo{}
			e.Init(m.bus, m.bus.UARTStart(), options...)

			return e
		}
	}
}

func WithTransmit(message []uint8, poll bool, options ...program.Option) Option {
	return func(m *Machine) {
		m.drain = false
		m.newProgram = func(m *Machine) runner {
			t := &program.Transmit{}
			t.Init(m.bus, m.bus.UARTStart(), message, poll, options...)

			return t
		}
	}
}

// WithMaxCycles stops the run after the given number of host cycles. Zero means no limit.
func WithMaxCycles(cycles uint64) Option {
	return func(m *Machine) {
		m.maxCycles = cycles
	}
}

// WithRealtime paces the run to the host clock instead of running flat out.
func WithRealtime() Option {
	return func(m *Machine) {
		m.realtime = true
	}
}

func WithTrace(w io.Writer) Option {
	return func(m *Machine) {
		m.trace = w
	}
}

func New(options ...Option) *Machine {
	m := &Machine{
		memory: &memory.Memory{},
		bus:    &bus.Bus{},
		uart:   &uart.UART{},
		hostHz: uart.DEFAULT_HOST_HZ,
	}

	WithEcho()(m)

	for _, o := range options {
		o(m)
	}

	m.bus.Memory = m.memory
	m.bus.UART = m.uart

	if m.trace != nil {
		m.debugger = &debugger.Debugger{}
		m.debugger.Init(m.trace)
		m.bus.Tracer = m.debugger
	}

	m.memory.Init()
	m.bus.Init(m.busOptions...)
	m.uart.Init(m.uartOptions...)
	m.program = m.newProgram(m)

	lib.Assert(m.hostHz > 0, "invalid host clock: %d Hz", m.hostHz)

	return m
}

func (m *Machine) UART() *uart.UART {
	return m.uart
}

func (m *Machine) Bus() *bus.Bus {
	return m.bus
}

// Run steps the program and the UART until the program is done and the UART
// is quiet, the cycle limit is hit or ctx is cancelled.
func (m *Machine) Run(ctx context.Context) (res Result, err error) {
	var sinceCheck, sinceFrame int

	frameCycles := m.hostHz / FPS
	frameStart := time.Now()

	defer func() {
		res.UART = m.uart.Stats()
	}()

	log.Debug("[machine] uart at $%04X, %d steps per byte", m.bus.UARTStart(), m.uart.StepsPerByte())

	for {
		if m.maxCycles > 0 && res.Cycles >= m.maxCycles {
			log.Debug("[machine] cycle limit reached")
			return res, m.finish()
		}

		cycles := m.program.Step()

		for range cycles {
			m.uart.Step()
		}

		if m.debugger != nil {
			m.debugger.Tick(cycles)
		}

		res.Cycles += uint64(cycles)

		if m.quiet() {
			log.Debug("[machine] finished after %d cycles", res.Cycles)

			res.Finished = true

			return res, m.finish()
		}

		sinceCheck += cycles
		if sinceCheck >= CHECK_CYCLES {
			sinceCheck = 0

			select {
			case <-ctx.Done():
				log.Debug("[machine] stopped")
				return res, m.finish()
			default:
			}
		}

		if m.realtime {
			sinceFrame += cycles
			if sinceFrame >= frameCycles {
				sinceFrame = 0

				if d := FRAME_TIME - time.Since(frameStart); d > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(d):
					}
				}

				frameStart = time.Now()
			}
		}
	}
}

func (m *Machine) quiet() bool {
	if !m.program.Done() || m.uart.TxBusy() {
		return false
	}

	return !m.drain || m.uart.Drained()
}

func (m *Machine) finish() error {
	if err := m.uart.Close(); err != nil {
		return err
	}

	if m.debugger != nil {
		if err := m.debugger.Flush(); err != nil {
			return fmt.Errorf("failed to flush trace: %w", err)
		}
	}

	return nil
}

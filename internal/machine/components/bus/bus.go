package bus

import "fmt"

const (
	DEFAULT_UART_START = 0x9FB0
	UART_REGISTERS     = 4
)

type memory interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

type uart interface {
	Read(reg uint8) uint8
	Write(reg uint8, value uint8)
}

type tracer interface {
	Push(trace string)
}

type Bus struct {
	Memory memory
	UART   uart
	Tracer tracer

	uartStart uint16
}

type Option func(*Bus)

func WithUARTStart(addr uint16) Option {
	return func(b *Bus) {
		b.uartStart = addr
	}
}

func (b *Bus) Init(options ...Option) {
	b.uartStart = DEFAULT_UART_START

	for _, o := range options {
		o(b)
	}
}

func (b *Bus) UARTStart() uint16 {
	return b.uartStart
}

func (b *Bus) Read(addr uint16) uint8 {
	if reg, ok := b.uartReg(addr); ok {
		value := b.UART.Read(reg)
		b.trace("R", reg, value)

		return value
	}

	return b.Memory.Read(addr)
}

func (b *Bus) Write(addr uint16, value uint8) {
	if reg, ok := b.uartReg(addr); ok {
		b.trace("W", reg, value)
		b.UART.Write(reg, value)

		return
	}

	b.Memory.Write(addr, value)
}

func (b *Bus) uartReg(addr uint16) (uint8, bool) {
	if addr < b.uartStart || uint32(addr) >= uint32(b.uartStart)+UART_REGISTERS {
		return 0, false
	}

	return uint8(addr - b.uartStart), true
}

func (b *Bus) trace(op string, reg, value uint8) {
	if b.Tracer == nil {
		return
	}

	b.Tracer.Push(fmt.Sprintf("%s %d %02X", op, reg, value))
}

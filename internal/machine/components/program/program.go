// Package program contains small bus masters that stand in for software
// running on the host CPU. Each Step performs at most one bus access.
package program

import (
	"github.com/cterence/uartemu/internal/machine/components/uart"
)

// Every bus access costs the same number of host cycles, roughly a 65C02
// absolute load or store.
const CYCLES_PER_ACCESS = 4

type memoryBus interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

type base struct {
	Bus  memoryBus
	UART uint16

	divisor    uint16
	setDivisor bool
	prologue   int
}

type Option func(*base)

// WithDivisor makes the program program the baud divisor through the
// divisor registers before doing anything else.
func WithDivisor(divisor uint16) Option {
	return func(b *base) {
		b.divisor = divisor
		b.setDivisor = true
	}
}

func (b *base) init(bus memoryBus, uartStart uint16, options ...Option) {
	b.Bus = bus
	b.UART = uartStart
	b.prologue = 0

	for _, o := range options {
		o(b)
	}
}

// stepPrologue writes the divisor low then high byte. It returns false once
// there is nothing left to do.
func (b *base) stepPrologue() bool {
	if !b.setDivisor {
		return false
	}

	switch b.prologue {
	case 0:
		b.Bus.Write(b.UART+uart.DIVISOR_LO, uint8(b.divisor))
	case 1:
		b.Bus.Write(b.UART+uart.DIVISOR_HI, uint8(b.divisor>>8))
	default:
		return false
	}

	b.prologue++

	return true
}

func (b *base) status() uint8 {
	return b.Bus.Read(b.UART + uart.STATUS)
}

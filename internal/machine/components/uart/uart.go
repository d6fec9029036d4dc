package uart

import (
	"errors"
	"fmt"
	"math"

	"github.com/cterence/uartemu/internal/lib"
	"github.com/cterence/uartemu/internal/log"
)

const (
	DATA       = 0
	STATUS     = 1
	DIVISOR_LO = 2
	DIVISOR_HI = 3

	STATUS_DATA_AVAILABLE = 0x1
	STATUS_TX_BUSY        = 0x2

	// 8N1: start bit, 8 data bits, stop bit
	BITS_PER_BYTE = 9

	// baud = 25,000,000 / (24 + 1) = 1,000,000
	DEFAULT_DIVISOR = 24

	DEFAULT_PERIPHERAL_HZ = 25_000_000
	DEFAULT_HOST_HZ       = 8_000_000
)

var ErrClocks = errors.New("invalid clocks")

// Source supplies inbound bytes. Ready must never block.
type Source interface {
	Next() (uint8, bool)
	Ready() bool
	Exhausted() bool
}

// Sink accepts outbound bytes. A byte is considered delivered once Put returns.
type Sink interface {
	Put(b uint8) error
}

type Stats struct {
	Transmitted int
	Received    int
	Overruns    int
	SinkErrors  int
}

type UART struct {
	source Source
	sink   Sink

	peripheralHz int
	hostHz       int

	// countdowns are kept in 1/scale bit-clock units, each step removes quantum
	scale   int64
	quantum int64

	bauddiv      uint16
	countdownIn  int64
	countdownOut int64

	byteIn     uint8
	fresh      bool
	refillWait bool

	stats Stats
}

type Option func(*UART)

func WithSource(s Source) Option {
	return func(u *UART) {
		u.source = s
	}
}

func WithSink(s Sink) Option {
	return func(u *UART) {
		u.sink = s
	}
}

func WithDivisor(divisor uint16) Option {
	return func(u *UART) {
		u.bauddiv = divisor
	}
}

// WithClocks sets the peripheral clock and the rate at which Step is called.
func WithClocks(peripheralHz, hostHz int) Option {
	return func(u *UART) {
		u.peripheralHz = peripheralHz
		u.hostHz = hostHz
	}
}

func (u *UART) Init(options ...Option) {
	u.bauddiv = DEFAULT_DIVISOR
	u.peripheralHz = DEFAULT_PERIPHERAL_HZ
	u.hostHz = DEFAULT_HOST_HZ

	for _, o := range options {
		o(u)
	}

	err := CheckClocks(u.peripheralHz, u.hostHz)
	lib.Assert(err == nil, "%v", err)

	g := gcd(int64(u.peripheralHz), int64(u.hostHz))
	u.scale = int64(u.hostHz) / g
	u.quantum = int64(u.peripheralHz) / g

	u.reset()

	log.Debug("[uart] divisor: %d, baud: %d", u.bauddiv, u.Baud())
}

// Reset restores power-on state, keeping the configured clocks and endpoints.
func (u *UART) Reset() {
	u.bauddiv = DEFAULT_DIVISOR
	u.reset()
}

func (u *UART) reset() {
	u.countdownIn = 0
	u.countdownOut = 0
	u.byteIn = 0
	u.fresh = false
	u.stats = Stats{}

	u.refillWait = true
	u.refill()
}

func (u *UART) Step() {
	if u.countdownOut > 0 {
		u.countdownOut -= u.quantum
	}

	if u.countdownIn > 0 {
		u.countdownIn -= u.quantum

		if u.countdownIn <= 0 {
			u.refillWait = true
			u.refill()
		}

		return
	}

	// A non-blocking source may not have had a byte when the countdown expired
	if u.refillWait {
		u.refill()
	}
}

func (u *UART) Read(reg uint8) uint8 {
	switch reg {
	case DATA:
		b := u.byteIn

		u.fresh = false
		u.countdownIn = u.ticks(BITS_PER_BYTE)

		if u.countdownIn <= 0 {
			u.refillWait = true
			u.refill()
		}

		return b
	case STATUS:
		var status uint8

		if u.TxBusy() {
			status |= STATUS_TX_BUSY
		}

		if u.DataAvailable() {
			status |= STATUS_DATA_AVAILABLE
		}

		return status
	case DIVISOR_LO:
		return uint8(u.bauddiv)
	case DIVISOR_HI:
		return uint8(u.bauddiv >> 8)
	default:
		return 0
	}
}

func (u *UART) Write(reg uint8, value uint8) {
	switch reg {
	case DATA:
		if u.TxBusy() {
			u.stats.Overruns++
			log.Warn("[uart] written while busy: $%02x", value)

			return
		}

		if u.sink != nil {
			if err := u.sink.Put(value); err != nil {
				u.stats.SinkErrors++
				log.Warn("[uart] sink error: %v", err)
			}
		}

		u.stats.Transmitted++
		u.countdownOut = u.ticks(BITS_PER_BYTE)
	case DIVISOR_LO:
		u.bauddiv = u.bauddiv&0xFF00 | uint16(value)
	case DIVISOR_HI:
		u.bauddiv = u.bauddiv&0x00FF | uint16(value)<<8
	}
}

func (u *UART) TxBusy() bool {
	return u.countdownOut > 0
}

func (u *UART) DataAvailable() bool {
	return u.countdownIn <= 0 && u.fresh
}

// Peek returns the cached inbound byte without side effects.
func (u *UART) Peek() uint8 {
	return u.byteIn
}

func (u *UART) Divisor() uint16 {
	return u.bauddiv
}

func (u *UART) Baud() int {
	return u.peripheralHz / (int(u.bauddiv) + 1)
}

// StepsPerByte is the number of steps a transmit keeps the UART busy.
func (u *UART) StepsPerByte() int {
	t := u.ticks(BITS_PER_BYTE)

	steps := t / u.quantum
	if t%u.quantum != 0 {
		steps++
	}

	return int(steps)
}

// Drained reports whether no inbound byte is pending and none can arrive anymore.
func (u *UART) Drained() bool {
	return !u.fresh && (u.source == nil || u.source.Exhausted())
}

func (u *UART) Stats() Stats {
	return u.stats
}

// Close flushes a buffered sink. Endpoints are closed by whoever opened them.
func (u *UART) Close() error {
	f, ok := u.sink.(interface{ Flush() error })
	if !ok {
		return nil
	}

	if err := f.Flush(); err != nil {
		return fmt.Errorf("failed to flush uart sink: %w", err)
	}

	return nil
}

func (u *UART) String() string {
	return fmt.Sprintf("DIV:%04X IN:%02X TX:%t RX:%t", u.bauddiv, u.byteIn, u.TxBusy(), u.DataAvailable())
}

func (u *UART) refill() {
	if u.source == nil || !u.source.Ready() {
		if u.source == nil || u.source.Exhausted() {
			u.refillWait = false
		}

		return
	}

	b, ok := u.source.Next()
	if !ok {
		if u.source.Exhausted() {
			u.refillWait = false
		}

		return
	}

	u.byteIn = b
	u.fresh = true
	u.refillWait = false
	u.stats.Received++

	log.Debug("[uart] cached $%02x", b)
}

// CheckClocks reports whether a peripheral and host clock pair can be used.
// The host clock divided by the common factor of both has to stay small
// enough for the longest countdown to fit in an int64.
func CheckClocks(peripheralHz, hostHz int) error {
	if peripheralHz <= 0 || hostHz <= 0 {
		return fmt.Errorf("%w: peripheral %d Hz, host %d Hz", ErrClocks, peripheralHz, hostHz)
	}

	scale := int64(hostHz) / gcd(int64(peripheralHz), int64(hostHz))
	if scale > math.MaxInt64/(math.MaxUint16*BITS_PER_BYTE) {
		return fmt.Errorf("%w: host %d Hz and peripheral %d Hz have too few common factors", ErrClocks, hostHz, peripheralHz)
	}

	return nil
}

func (u *UART) ticks(bits int64) int64 {
	return int64(u.bauddiv) * bits * u.scale
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

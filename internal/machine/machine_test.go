package machine

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cterence/uartemu/internal/endpoint"
	"github.com/cterence/uartemu/internal/log"
	"github.com/cterence/uartemu/internal/machine/components/program"
	"github.com/cterence/uartemu/internal/machine/components/uart"
	"github.com/cterence/uartemu/internal/machine/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Echo(t *testing.T) {
	in := endpoint.NewBytesSource([]uint8("The quick brown fox"))
	out := &endpoint.BufferSink{}

	m := New(WithUARTOptions(uart.WithSource(in), uart.WithSink(out)))

	res := lib.Must(m.Run(context.Background()))

	assert.True(t, res.Finished)
	assert.Equal(t, "The quick brown fox", string(out.Bytes()))
	assert.Equal(t, 19, res.UART.Transmitted)
	assert.Equal(t, 19, res.UART.Received)
	assert.Zero(t, res.UART.Overruns)

	// Receive and transmit overlap, so each byte costs at least one transfer time
	assert.GreaterOrEqual(t, res.Cycles, uint64(19*m.UART().StepsPerByte()))
}

func Test_EchoZeroDivisor(t *testing.T) {
	in := endpoint.NewBytesSource([]uint8("ABCDEFGH"))
	out := &endpoint.BufferSink{}

	m := New(
		WithUARTOptions(uart.WithSource(in), uart.WithSink(out)),
		WithEcho(program.WithDivisor(0)),
	)

	res := lib.Must(m.Run(context.Background()))

	assert.True(t, res.Finished)
	assert.Equal(t, "ABCDEFGH", string(out.Bytes()))
	assert.Zero(t, res.UART.Overruns)
}

func Test_EchoNoSource(t *testing.T) {
	m := New()

	res := lib.Must(m.Run(context.Background()))

	assert.True(t, res.Finished)
	assert.Equal(t, uint64(program.CYCLES_PER_ACCESS), res.Cycles)
}

func Test_Transmit(t *testing.T) {
	out := &endpoint.BufferSink{}
	digest := endpoint.NewDigestSink(out)

	m := New(
		WithUARTOptions(uart.WithSink(digest)),
		WithTransmit([]uint8("READY."), true, program.WithDivisor(0)),
	)

	res := lib.Must(m.Run(context.Background()))

	assert.True(t, res.Finished)
	assert.Equal(t, "READY.", string(out.Bytes()))
	assert.Equal(t, uint16(0), m.UART().Divisor())
	assert.Equal(t, 6, digest.Count())
}

func Test_MaxCycles(t *testing.T) {
	var warnings bytes.Buffer

	old := log.Output
	log.Output = &warnings

	defer func() {
		log.Output = old
	}()

	out := &endpoint.BufferSink{}

	m := New(
		WithUARTOptions(uart.WithSink(out)),
		WithTransmit(bytes.Repeat([]uint8{'-'}, 1000), true),
		WithMaxCycles(1000),
	)

	res := lib.Must(m.Run(context.Background()))

	assert.False(t, res.Finished)
	assert.Equal(t, uint64(1000), res.Cycles)
	assert.Less(t, len(out.Bytes()), 1000)
	assert.Empty(t, warnings.String())
}

func Test_ContextCancel(t *testing.T) {
	// never exhausted, never ready
	ch := make(chan uint8)
	src := endpoint.NewChanSource(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	m := New(WithUARTOptions(uart.WithSource(src)))

	res, err := m.Run(ctx)
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.Greater(t, res.Cycles, uint64(0))
}

func Test_Realtime(t *testing.T) {
	ch := make(chan uint8)
	src := endpoint.NewChanSource(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m := New(
		WithUARTOptions(uart.WithSource(src)),
		WithClocks(uart.DEFAULT_PERIPHERAL_HZ, 600_000),
		WithRealtime(),
	)

	res, err := m.Run(ctx)
	require.NoError(t, err)

	// 600 kHz paced for ~100ms is ~60k cycles; flat out would be far more
	assert.Less(t, res.Cycles, uint64(200_000))
}

func Test_Trace(t *testing.T) {
	var trace bytes.Buffer

	in := endpoint.NewBytesSource([]uint8("A"))
	out := &endpoint.BufferSink{}

	m := New(
		WithUARTOptions(uart.WithSource(in), uart.WithSink(out)),
		WithUARTStart(0x0400),
		WithTrace(&trace),
	)

	lib.Must(m.Run(context.Background()))

	assert.Equal(t, uint16(0x0400), m.Bus().UARTStart())

	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)

	assert.True(t, strings.HasSuffix(lines[0], "R 1 01"), lines[0])
	assert.Contains(t, trace.String(), "R 0 41")
	assert.Contains(t, trace.String(), "W 0 41")
}

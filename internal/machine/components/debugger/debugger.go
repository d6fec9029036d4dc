package debugger

import (
	"fmt"
	"io"

	"github.com/cterence/uartemu/internal/lib"
)

const (
	DEBUGGER_SIZE = 2048
)

// Debugger collects register access traces and writes them out in batches.
type Debugger struct {
	writer io.Writer
	traces lib.FIFO[string]
	cycle  uint64
	err    error
}

func (d *Debugger) Init(w io.Writer) {
	d.writer = w
	d.cycle = 0
	d.err = nil
	d.traces.Init(DEBUGGER_SIZE)
}

// Tick advances the cycle stamp used for subsequent traces.
func (d *Debugger) Tick(cycles int) {
	d.cycle += uint64(cycles)
}

func (d *Debugger) Push(trace string) {
	if d.traces.Full() {
		_ = d.Flush()
	}

	d.traces.Push(fmt.Sprintf("%010d %s", d.cycle, trace))
}

// Pending is the number of traces not yet written.
func (d *Debugger) Pending() int {
	return d.traces.GetCount()
}

// Flush writes all pending traces. The first write error is kept and
// further traces are discarded.
func (d *Debugger) Flush() error {
	if d.err != nil {
		d.traces.Clear()
		return d.err
	}

	for {
		trace, ok := d.traces.Pop()
		if !ok {
			return nil
		}

		if _, err := io.WriteString(d.writer, trace+"\n"); err != nil {
			d.err = fmt.Errorf("failed to write trace: %w", err)
			d.traces.Clear()

			return d.err
		}
	}
}

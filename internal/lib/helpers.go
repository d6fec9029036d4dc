package lib

import "fmt"

func Assert(condition bool, msg string, args ...any) {
	if !condition {
		panic(fmt.Sprintf(msg, args...))
	}
}

// FIFO is a fixed-size ring buffer. Pushing onto a full FIFO drops the element.
type FIFO[T any] struct {
	elements []T
	head     int
	tail     int
	count    int
}

func (f *FIFO[T]) Init(size int) {
	f.elements = make([]T, size)
	f.Clear()
}

// Push returns false when the FIFO is full and e was dropped.
func (f *FIFO[T]) Push(e T) bool {
	if f.Full() {
		return false
	}

	f.elements[f.tail] = e
	f.tail = (f.tail + 1) % len(f.elements)
	f.count++

	return true
}

func (f *FIFO[T]) Pop() (T, bool) {
	var zero T

	if f.count == 0 {
		return zero, false
	}

	e := f.elements[f.head]
	f.elements[f.head] = zero
	f.head = (f.head + 1) % len(f.elements)
	f.count--

	return e, true
}

func (f *FIFO[T]) Clear() {
	clear(f.elements)

	f.count = 0
	f.head = 0
	f.tail = 0
}

func (f *FIFO[T]) Full() bool {
	return f.count == len(f.elements)
}

func (f *FIFO[T]) GetCount() int {
	return f.count
}

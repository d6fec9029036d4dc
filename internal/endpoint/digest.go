package endpoint

import (
	"hash"

	"github.com/cespare/xxhash"
	"github.com/cterence/uartemu/internal/machine/components/uart"
)

// DigestSink hashes every byte passing through to the wrapped sink.
type DigestSink struct {
	sink  uart.Sink
	hash  hash.Hash64
	count int
}

func NewDigestSink(sink uart.Sink) *DigestSink {
	return &DigestSink{
		sink: sink,
		hash: xxhash.New(),
	}
}

func (s *DigestSink) Put(b uint8) error {
	s.hash.Write([]byte{b})
	s.count++

	if s.sink == nil {
		return nil
	}

	return s.sink.Put(b)
}

func (s *DigestSink) Flush() error {
	if f, ok := s.sink.(interface{ Flush() error }); ok {
		return f.Flush()
	}

	return nil
}

func (s *DigestSink) Sum64() uint64 {
	return s.hash.Sum64()
}

func (s *DigestSink) Count() int {
	return s.count
}

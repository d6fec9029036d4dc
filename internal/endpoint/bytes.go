package endpoint

// BytesSource yields a fixed byte stream. It is always ready until exhausted.
type BytesSource struct {
	data []uint8
	pos  int
}

func NewBytesSource(data []uint8) *BytesSource {
	return &BytesSource{data: data}
}

func (s *BytesSource) Next() (uint8, bool) {
	if s.Exhausted() {
		return 0, false
	}

	b := s.data[s.pos]
	s.pos++

	return b, true
}

func (s *BytesSource) Ready() bool {
	return !s.Exhausted()
}

func (s *BytesSource) Exhausted() bool {
	return s.pos >= len(s.data)
}

// Remaining returns the bytes that have not been consumed yet.
func (s *BytesSource) Remaining() []uint8 {
	return s.data[s.pos:]
}

// BufferSink records every byte it accepts.
type BufferSink struct {
	data []uint8
}

func (s *BufferSink) Put(b uint8) error {
	s.data = append(s.data, b)
	return nil
}

func (s *BufferSink) Bytes() []uint8 {
	return s.data
}

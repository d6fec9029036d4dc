package memory

const (
	RAM_START = 0x0000
	RAM_END   = 0xFFFF
	RAM_SIZE  = RAM_END - RAM_START + 1
)

type Memory struct {
	ram [RAM_SIZE]uint8
}

func (m *Memory) Init() {
	m.ram = [RAM_SIZE]uint8{}
}

func (m *Memory) Read(addr uint16) uint8 {
	return m.ram[addr]
}

func (m *Memory) Write(addr uint16, value uint8) {
	m.ram[addr] = value
}

// Load copies data into RAM starting at addr, wrapping at the top of the address space.
func (m *Memory) Load(addr uint16, data []uint8) {
	for i, b := range data {
		m.ram[addr+uint16(i)] = b
	}
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ReadWrite(t *testing.T) {
	m := &Memory{}
	m.Init()

	m.Write(0x1234, 0xAB)

	assert.Equal(t, uint8(0xAB), m.Read(0x1234))
	assert.Equal(t, uint8(0x00), m.Read(0x1235))
}

func Test_LoadWraps(t *testing.T) {
	m := &Memory{}
	m.Init()

	m.Load(0xFFFE, []uint8{1, 2, 3})

	assert.Equal(t, uint8(1), m.Read(0xFFFE))
	assert.Equal(t, uint8(2), m.Read(0xFFFF))
	assert.Equal(t, uint8(3), m.Read(0x0000))
}

//go:build unix

package endpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FileSourceRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []uint8("AB"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)

	s := NewFileSource(f)
	defer s.Close()

	var got []uint8

	for range 10 {
		if b, ok := s.Next(); ok {
			got = append(got, b)
		}
	}

	assert.Equal(t, []uint8("AB"), got)
	assert.True(t, s.Exhausted())
	assert.False(t, s.Ready())
}

func Test_FileSourcePipeNeverBlocks(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	s := NewFileSource(r)
	defer s.Close()

	// Nothing written yet: must return immediately
	assert.False(t, s.Ready())

	_, ok := s.Next()
	assert.False(t, ok)
	assert.False(t, s.Exhausted())

	_, err = w.Write([]uint8{0x42})
	require.NoError(t, err)

	require.Eventually(t, s.Ready, time.Second, time.Millisecond)

	b, ok := s.Next()
	assert.True(t, ok)
	assert.Equal(t, uint8(0x42), b)

	require.NoError(t, w.Close())
	require.Eventually(t, func() bool {
		s.Next()
		return s.Exhausted()
	}, time.Second, time.Millisecond)
}

package main

import (
	"archive/zip"
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cterence/uartemu/internal/machine/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		main()

		return
	}

	os.Exit(m.Run())
}

func runUARTEmu(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(os.Args[0], args...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

func Test_EchoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")

	require.NoError(t, os.WriteFile(in, []uint8("10 PRINT \"HELLO\"\n20 GOTO 10\n"), 0o644))

	_, stderr, err := runUARTEmu(t, "--in", in, "--out", out)
	require.NoError(t, err, stderr)

	assert.Equal(t, "10 PRINT \"HELLO\"\n20 GOTO 10\n", string(lib.Must(os.ReadFile(out))))
	assert.Empty(t, stderr)
}

func Test_EchoZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.zip")
	out := filepath.Join(dir, "out.txt")

	f := lib.Must(os.Create(in))
	zw := zip.NewWriter(f)
	w := lib.Must(zw.Create("input.txt"))
	_, err := w.Write([]uint8("zipped input"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, stderr, err := runUARTEmu(t, "--in", in, "--out", out, "--divisor", "3")
	require.NoError(t, err, stderr)

	assert.Equal(t, "zipped input", string(lib.Must(os.ReadFile(out))))
}

func Test_SendStdout(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := runUARTEmu(t, "send", "hello", "world")
	require.NoError(t, err, stderr)

	assert.Equal(t, "hello world", stdout)
}

func Test_SendWithoutPolling(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := runUARTEmu(t, "send", "--no-poll", "overrun")
	require.NoError(t, err, stderr)

	assert.Equal(t, "o", stdout)
	assert.Equal(t, 6, strings.Count(stderr, "written while busy"))
}

func Test_Trace(t *testing.T) {
	t.Parallel()

	trace := filepath.Join(t.TempDir(), "trace.txt")

	_, stderr, err := runUARTEmu(t, "--trace", trace, "--uart-addr", "768", "--divisor", "24", "send", "A")
	require.NoError(t, err, stderr)

	data := string(lib.Must(os.ReadFile(trace)))
	assert.Contains(t, data, "W 2 18")
	assert.Contains(t, data, "W 0 41")
}

func Test_Timing(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := runUARTEmu(t, "--divisor", "49", "timing")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "baud:           500000")
	assert.Contains(t, stdout, "steps per byte: 142")
}

func Test_UnusableClocks(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"--host-hz", "0", "timing"},
		{"--host-hz", "16000000000001", "timing"},
		{"--host-hz", "16000000000001", "send", "x"},
	} {
		_, stderr, err := runUARTEmu(t, args...)
		require.Error(t, err, args)

		assert.Contains(t, stderr, "invalid clocks", args)
		assert.NotContains(t, stderr, "panic", args)
	}
}

func Test_MissingInput(t *testing.T) {
	t.Parallel()

	_, stderr, err := runUARTEmu(t, "--in", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)

	assert.Contains(t, stderr, "runtime error")
}

//go:build unix

package endpoint

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

const pollSupported = true

// pollReadable reports whether a read on f would return without blocking.
// End of file counts as readable.
func pollReadable(f *os.File) bool {
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLIN}}

	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return false
		}

		return n == 1 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0
	}
}

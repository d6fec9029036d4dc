//go:build !unix

package endpoint

import "os"

const pollSupported = false

// Only regular files reach here, see inputSource.
func pollReadable(_ *os.File) bool {
	return true
}

package log

import (
	"fmt"
	"io"
	"os"
)

var (
	DebugEnabled bool

	// Output receives warnings. Debug lines always go to stdout.
	Output io.Writer = os.Stderr
)

func Debug(format string, args ...any) {
	if DebugEnabled {
		fmt.Printf(format+"\n", args...)
	}
}

func Warn(format string, args ...any) {
	fmt.Fprintf(Output, format+"\n", args...)
}

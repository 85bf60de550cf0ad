package main

import (
	"fmt"
	"os"
)

// main is the process entry point: parse arguments, start the server,
// and run until it is told to stop or a fatal error occurs (spec
// section 6). This mirrors the teacher codebase's getArgs/exit-code
// shape, trimmed of the configuration-file path.
func main() {
	args := getArgs()
	if args == nil {
		os.Exit(2)
	}

	s := NewServer(args.Password)
	if err := s.Run(fmt.Sprintf(":%d", args.Port)); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

//go:build windows

package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

func exit(err error) {
	// keep the console open when started from Explorer, e.g. by dropping archives onto the executable.
	if term.IsTerminal(int(os.Stdin.Fd())) && len(os.Args) > 1 && os.Args[1] != "cat" {
		_, _ = fmt.Fprintf(os.Stderr, "Press any key to close console\n")
		r := bufio.NewReader(os.Stdin)
		_, _, _ = r.ReadRune()
	}

	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}

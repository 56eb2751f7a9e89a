package main

import (
	"context"
	"errors"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/unarc/internal/cmd"
)

func main() {
	_, err := cmd.NewParser(&cmd.Unarc{}).Parse()
	exit(err)
}

// exitCode is 130 for interrupts like shells do, 1 for other errors.
func exitCode(err error) int {
	switch {
	case err == nil, flags.WroteHelp(err):
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

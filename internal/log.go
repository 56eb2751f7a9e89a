package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/nguyengg/unarc/util"
)

// Prefix creates a consistent prefix for all archive-based commands to use.
//
// i and n are the zero-based ordinal and expected count.
func Prefix(i, n int, name string) string {
	return fmt.Sprintf(`[%d/%d] "%s" -`, i+1, n, util.TruncateRightWithSuffix(filepath.Base(name), 30, "..."))
}

// NewLogger creates a logger writing to stderr with Prefix as its prefix.
func NewLogger(i, n int, name string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          Prefix(i, n, name),
		ReportTimestamp: true,
		Level:           log.GetLevel(),
	})
}

package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nguyengg/unarc"
)

type Formats struct {
	out io.Writer
}

func (c *Formats) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	w := tabwriter.NewWriter(stdout(c.out), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEXTENSIONS\tINNER")
	for _, f := range unarc.Formats() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, strings.Join(f.Extensions, " "), strings.Join(f.AddExtensions, " "))
	}

	return w.Flush()
}

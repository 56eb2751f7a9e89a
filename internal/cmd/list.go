package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/nguyengg/unarc"
)

type List struct {
	Tree     bool   `short:"t" long:"tree" description:"print the items as a tree with file and directory counts"`
	Password string `long:"password" description:"password of encrypted archives"`
	Args     archives `positional-args:"yes"`

	out io.Writer
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	return forEach(c.Args.Files, c.list)
}

func (c *List) list(ctx context.Context, name string, logger *log.Logger) error {
	a, err := openArchive(ctx, name, c.Password, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w := stdout(c.out)

	if c.Tree {
		t, err := a.Tree()
		if err != nil {
			return err
		}

		return printTree(w, t.Root(), "")
	}

	var files int
	var size uint64
	for item, err := range a.Items() {
		if err != nil {
			return err
		}

		if err = printItem(w, item); err != nil {
			return err
		}

		if !item.IsDir {
			files++
			size += item.Size
		}
	}

	logger.Info("listed", "format", a.Format().Name, "files", files, "size", humanize.Bytes(size))
	return nil
}

func printItem(w io.Writer, item unarc.Item) error {
	mtime := "-"
	if !item.ModTime.IsZero() {
		mtime = item.ModTime.Local().Format(time.DateTime)
	}

	size := "-"
	if !item.IsDir {
		size = humanize.Bytes(item.Size)
	}

	_, err := fmt.Fprintf(w, "%s %10s %19s %s\n", item.Mode(), size, mtime, item.Path)
	return err
}

func printTree(w io.Writer, n unarc.Node, indent string) error {
	if !n.IsDir() {
		_, err := fmt.Fprintf(w, "%s%s\n", indent, n.Name())
		return err
	}

	name := n.Name() + "/"
	if n.IsRoot() {
		name = "/"
	}
	if _, err := fmt.Fprintf(w, "%s%s (%d files, %d dirs)\n", indent, name, n.FileCount(), n.DirCount()); err != nil {
		return err
	}

	children, err := n.Children()
	if err != nil {
		return err
	}

	for _, child := range children {
		if err = printTree(w, child, indent+"  "); err != nil {
			return err
		}
	}

	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/unarc/internal"
	"github.com/nguyengg/unarc/util"
)

type Cat struct {
	Password string `long:"password" description:"password of encrypted archives"`
	Args     struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"local path or s3://bucket/key of the archive" required:"yes"`
		Path    string         `positional-arg-name:"path" description:"path of the item inside the archive" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	out io.Writer
}

func (c *Cat) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.cat(ctx)
}

func (c *Cat) cat(ctx context.Context) error {
	name := string(c.Args.Archive)
	logger := internal.NewLogger(0, 1, name)

	a, err := openArchive(ctx, name, c.Password, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.Tree()
	if err != nil {
		return err
	}

	node, err := t.Find(c.Args.Path)
	if err != nil {
		return err
	}

	s, err := a.OpenStream(ctx, node)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err = util.CopyBufferWithContext(ctx, stdout(c.out), s, nil); err != nil {
		return err
	}

	return s.Wait()
}

// Package cmd contains the commands of the unarc CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/unarc"
	"github.com/nguyengg/unarc/internal"
	"github.com/nguyengg/unarc/internal/config"
	"github.com/nguyengg/unarc/s3readseeker"
)

// Unarc is the root of the CLI.
type Unarc struct {
	Profile string `short:"p" long:"profile" description:"override the AWS profile used for s3:// archives and destinations"`
	Verbose bool   `short:"v" long:"verbose" description:"enable debug logging"`

	List    List    `command:"list" alias:"ls" description:"list the items of archives"`
	Extract Extract `command:"extract" alias:"x" description:"extract archives to local directories or S3"`
	Test    Test    `command:"test" alias:"t" description:"verify the integrity of archives"`
	Cat     Cat     `command:"cat" description:"write the content of one archive item to stdout"`
	Formats Formats `command:"formats" description:"print the supported archive formats"`
}

// NewParser returns the parser for the CLI.
//
// The parser loads the .unarc configuration file and applies the global options before executing a command.
func NewParser(opts *Unarc) *flags.Parser {
	p := flags.NewParser(opts, flags.Default)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		if opts.Verbose {
			log.SetLevel(log.DebugLevel)
		}

		config.DefaultLoader.Profile = opts.Profile
		name, err := config.Load(context.Background())
		if err != nil {
			return fmt.Errorf("load config (path=%s) error: %w", name, err)
		}
		if name != "" {
			log.Debug("loaded config", "path", name)
		}

		return command.Execute(args)
	}

	return p
}

// archives holds the positional arguments shared by most commands.
type archives struct {
	Files []flags.Filename `positional-arg-name:"archive" description:"local paths or s3://bucket/key of the archives" required:"yes"`
}

// forEach runs fn on every archive, logging failures with a prefix logger, and stops at the first cancellation.
//
// Returns an error if any archive failed.
func forEach(files []flags.Filename, fn func(ctx context.Context, name string, logger *log.Logger) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	success, n := 0, len(files)
	for i, file := range files {
		logger := internal.NewLogger(i, n, string(file))

		err := fn(ctx, string(file), logger)
		if err == nil {
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			return err
		}

		logger.Error("failed", "error", err)
	}

	if success != n {
		return fmt.Errorf("%d/%d archives failed", n-success, n)
	}

	return nil
}

// openArchive opens a local archive, or an S3 archive if name is an s3://bucket/key URI.
func openArchive(ctx context.Context, name, password string, logger *log.Logger) (*unarc.Archive, error) {
	optFn := func(opts *unarc.OpenOptions) {
		opts.Password = password
		opts.Logger = logger
	}

	bucket, key, ok := parseS3URI(name)
	if !ok {
		return unarc.OpenFile(ctx, name, optFn)
	}

	client, err := config.NewS3ClientForBucket(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("create s3 client error: %w", err)
	}

	bufferSize := config.ForExtract().BufferSize
	rs, err := s3readseeker.New(client, bucket, key,
		s3readseeker.WithExpectedBucketOwner(config.ForBucket(bucket).ExpectedBucketOwner),
		func(opts *s3readseeker.Options) {
			opts.CtxFn = func() context.Context {
				return ctx
			}
			if bufferSize > 0 {
				opts.BufferSize = bufferSize
			}
		})
	if err != nil {
		return nil, err
	}

	return unarc.Open(ctx, rs, key, optFn)
}

// parseS3URI splits s3://bucket/key. ok is false if uri is not an S3 URI.
func parseS3URI(uri string) (bucket, key string, ok bool) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", false
	}

	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, bucket != ""
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/nguyengg/unarc"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
	"github.com/nguyengg/unarc/internal/config"
	"github.com/nguyengg/unarc/sink"
	"github.com/nguyengg/unarc/util"
)

type Extract struct {
	Dir          string   `short:"C" long:"dir" description:"extract into this directory instead of a new directory named after the archive"`
	To           string   `long:"to" description:"upload the extracted files to s3://bucket/prefix instead of the local filesystem"`
	NoUnwrapRoot bool     `long:"no-unwrap-root" description:"keep the common top-level directory of the archive"`
	NoOverwrite  bool     `long:"no-overwrite" description:"skip files that already exist"`
	Password     string   `long:"password" description:"password of encrypted archives"`
	Args         archives `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	if c.To != "" {
		if _, _, ok := parseS3URI(c.To); !ok {
			return fmt.Errorf("invalid destination %q: must be s3://bucket/prefix", c.To)
		}
	}

	cfg := config.ForExtract()
	c.NoUnwrapRoot = c.NoUnwrapRoot || !cfg.UnwrapRoot
	c.NoOverwrite = c.NoOverwrite || cfg.NoOverwrite

	return forEach(c.Args.Files, c.extract)
}

func (c *Extract) extract(ctx context.Context, name string, logger *log.Logger) error {
	a, err := openArchive(ctx, name, c.Password, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var items []unarc.Item
	for item, err := range a.Items() {
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	stem, _ := util.StemAndExt(name)

	var (
		s        extract.Sink
		failures func() []sink.Failure
		done     func()
	)
	if c.To != "" {
		bucket, prefix, _ := parseS3URI(c.To)
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		prefix += stem + "/"

		client, err := config.NewS3ClientForBucket(ctx, bucket)
		if err != nil {
			return fmt.Errorf("create s3 client error: %w", err)
		}

		bc := config.ForBucket(bucket)
		s3s := sink.NewS3(ctx, client, bucket, prefix, items, func(opts *sink.S3Options) {
			opts.NoUnwrapRoot = c.NoUnwrapRoot
			opts.ExpectedBucketOwner = bc.ExpectedBucketOwner
			opts.StorageClass = bc.StorageClass
			opts.Logger = logger
		})
		defer s3s.Close()

		s = s3s
		failures = func() []sink.Failure { return s3s.Failures }
		done = func() {
			logger.Info("done uploading", "objects", len(s3s.Keys), "destination", fmt.Sprintf("s3://%s/%s", bucket, prefix))
		}
	} else {
		dir, err := c.outputDir(stem)
		if err != nil {
			return err
		}

		d := sink.NewDir(dir, items, func(opts *sink.DirOptions) {
			opts.NoUnwrapRoot = c.NoUnwrapRoot
			opts.NoOverwrite = c.NoOverwrite
			opts.Logger = logger
		})

		s = d
		failures = func() []sink.Failure { return d.Failures }
		done = func() {
			logger.Info("done extracting", "files", d.Files, "dirs", d.Dirs, "skipped", d.Skipped, "output", util.DirBase(dir))
		}
	}

	logger.Info("start extracting", "format", a.Format().Name, "items", len(items))

	p := sink.NewProgress(s, stem)
	if err = a.ExtractAll(ctx, engine.AskExtract, p); err != nil {
		return err
	}
	_ = p.Finish()

	done()

	if fs := failures(); len(fs) != 0 {
		for _, f := range fs {
			logger.Warn("item failed", "path", f.Path, "result", f.Result)
		}
		return fmt.Errorf("%d items failed to extract", len(fs))
	}

	return nil
}

// outputDir returns the directory to extract into, creating it if needed.
//
// Without -C, a new directory named after the archive is created in the working directory, with a numeric suffix if
// needed so that no existing directory is reused.
func (c *Extract) outputDir(stem string) (string, error) {
	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory error: %w", err)
		}

		return c.Dir, nil
	}

	return util.MkExclDir(".", stem, 0755)
}

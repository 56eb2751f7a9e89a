package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
	"github.com/nguyengg/unarc/sink"
	"golang.org/x/time/rate"
)

type Test struct {
	Password string   `long:"password" description:"password of encrypted archives"`
	Args     archives `positional-args:"yes"`
}

func (c *Test) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	return forEach(c.Args.Files, c.test)
}

func (c *Test) test(ctx context.Context, name string, logger *log.Logger) error {
	a, err := openArchive(ctx, name, c.Password, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	d := &sink.Discard{}
	if err = a.ExtractAll(ctx, engine.AskTest, newProgressLogger(d, logger)); err != nil {
		return err
	}

	failed := d.Failed()
	for _, r := range failed {
		item, err := a.Item(r.ID)
		if err != nil {
			return err
		}

		logger.Warn("item failed", "path", item.Path, "result", r.Result)
	}

	if len(failed) != 0 {
		return fmt.Errorf("%d/%d items failed verification", len(failed), len(d.Results))
	}

	logger.Info("everything is ok", "format", a.Format().Name, "items", len(d.Results))
	return nil
}

// progressLogger logs the extraction progress at most once every few seconds.
type progressLogger struct {
	extract.Sink

	logger    *log.Logger
	sometimes *rate.Sometimes
	total     uint64
}

func newProgressLogger(inner extract.Sink, logger *log.Logger) *progressLogger {
	return &progressLogger{
		Sink:      inner,
		logger:    logger,
		sometimes: &rate.Sometimes{Interval: 5 * time.Second},
	}
}

func (l *progressLogger) SetTotal(size uint64) error {
	l.total = size
	return l.Sink.SetTotal(size)
}

func (l *progressLogger) SetCompleted(completed uint64) error {
	l.sometimes.Do(func() {
		if l.total == 0 {
			l.logger.Infof("processed %s so far", humanize.Bytes(completed))
			return
		}

		l.logger.Infof("processed %.2f%% of %s so far", float64(completed)/float64(l.total)*100.0, humanize.Bytes(l.total))
	})
	return l.Sink.SetCompleted(completed)
}

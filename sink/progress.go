package sink

import (
	"fmt"
	"os"
	"time"

	"github.com/nguyengg/unarc/extract"
	"github.com/schollz/progressbar/v3"
)

// Progress wraps a Sink to render the extraction progress as a progress bar.
//
// The bar's maximum follows SetTotal and its value follows SetCompleted. Every call is forwarded to the wrapped Sink.
type Progress struct {
	extract.Sink

	// Bar is the progress bar being driven.
	Bar *progressbar.ProgressBar
}

var _ extract.Sink = &Progress{}
var _ extract.RatioSink = &Progress{}

// NewProgress wraps inner with a byte-based progress bar written to stderr.
//
// The options are applied after the defaults, which are the same as progressbar.DefaultBytes but with a higher
// throttle. The bar renders a spinner until SetTotal is called.
func NewProgress(inner extract.Sink, description string, options ...progressbar.Option) *Progress {
	return &Progress{
		Sink: inner,
		Bar: progressbar.NewOptions64(-1,
			append([]progressbar.Option{
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetWidth(10),
				progressbar.OptionThrottle(1 * time.Second),
				progressbar.OptionShowCount(),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprint(os.Stderr, "\n")
				}),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetRenderBlankState(true)},
				options...)...),
	}
}

func (p *Progress) SetTotal(size uint64) error {
	p.Bar.ChangeMax64(int64(size))
	return p.Sink.SetTotal(size)
}

func (p *Progress) SetCompleted(completed uint64) error {
	if err := p.Bar.Set64(int64(completed)); err != nil {
		return err
	}
	return p.Sink.SetCompleted(completed)
}

// SetRatioInfo forwards to the wrapped Sink if it implements extract.RatioSink.
func (p *Progress) SetRatioInfo(in, out uint64) error {
	if rs, ok := p.Sink.(extract.RatioSink); ok {
		return rs.SetRatioInfo(in, out)
	}
	return nil
}

// Finish fills the bar to its maximum.
func (p *Progress) Finish() error {
	return p.Bar.Finish()
}

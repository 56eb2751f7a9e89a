package sink

import (
	"io"

	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
)

// Discard decodes every item without keeping its content, recording the outcome of each item.
//
// Use Discard with engine.AskTest to verify an archive, or with engine.AskExtract to count the decoded bytes.
type Discard struct {
	extract.NoopSink

	id      uint32
	written int64

	// Results are the outcomes of every item in extraction order.
	Results []Result
}

// Result is the outcome of one item.
type Result struct {
	ID     uint32
	Result engine.OperationResult
	// Written is the number of bytes decoded in engine.AskExtract mode.
	Written int64
}

var _ extract.Sink = &Discard{}

// Failed returns the results that are not engine.ResultOK.
func (d *Discard) Failed() (failed []Result) {
	for _, r := range d.Results {
		if r.Result != engine.ResultOK {
			failed = append(failed, r)
		}
	}
	return
}

func (d *Discard) GetOutput(id uint32, mode engine.AskMode) (io.Writer, error) {
	d.id, d.written = id, 0
	if mode != engine.AskExtract {
		return nil, nil
	}

	return d, nil
}

// Write implements io.Writer by counting and discarding p.
func (d *Discard) Write(p []byte) (int, error) {
	d.written += int64(len(p))
	return len(p), nil
}

func (d *Discard) SetOperationResult(result engine.OperationResult) error {
	d.Results = append(d.Results, Result{ID: d.id, Result: result, Written: d.written})
	return nil
}

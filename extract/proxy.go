package extract

import (
	"context"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/nguyengg/unarc/engine"
)

// State is the state of a Proxy.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInProgress:
		return "in progress"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Proxy implements engine.ExtractCallback on top of a Sink.
//
// A Proxy serves a single extraction call and must not be reused.
type Proxy struct {
	sink    Sink
	state   State
	pending []error

	item    uint32
	hasItem bool
	output  io.Writer
}

var _ engine.ExtractCallback = &Proxy{}
var _ engine.RatioReporter = &Proxy{}

// NewProxy returns a new Proxy for the given Sink.
func NewProxy(sink Sink) *Proxy {
	return &Proxy{sink: sink}
}

// Run extracts the requested items of h into sink.
//
// Returns nil on success. If any Sink method failed, the returned *Error carries the original failure(s) regardless of
// what the engine returned. Otherwise, the engine's own error is returned unchanged.
func Run(ctx context.Context, h engine.Handler, req engine.Request, sink Sink) error {
	p := NewProxy(sink)
	return p.Finish(h.Extract(ctx, req, p))
}

// State returns the current state.
func (p *Proxy) State() State {
	return p.state
}

// Pending returns the Sink failures recorded so far.
func (p *Proxy) Pending() []error {
	return p.pending
}

// Finish must be called with the result of the engine's Extract call.
//
// Recorded Sink failures take precedence over engineErr, which is returned unchanged if there are none.
func (p *Proxy) Finish(engineErr error) error {
	// an engine that stopped mid-item never reported its result.
	if closer, ok := p.output.(io.Closer); ok {
		p.output = nil
		_ = closer.Close()
	}

	pending := p.pending
	p.pending = nil

	if engineErr == nil && len(pending) == 0 {
		p.state = StateCompleted
		return nil
	}
	p.state = StateFailed

	switch len(pending) {
	case 0:
		return engineErr
	case 1:
		return &Error{Engine: engineErr, Cause: pending[0]}
	default:
		return &Error{Engine: engineErr, Cause: multierror.Append(nil, pending...)}
	}
}

func (p *Proxy) SetTotal(size uint64) engine.Code {
	p.state = StateInProgress
	return p.call("SetTotal", func() error {
		return p.sink.SetTotal(size)
	})
}

func (p *Proxy) SetCompleted(completed uint64) engine.Code {
	return p.call("SetCompleted", func() error {
		return p.sink.SetCompleted(completed)
	})
}

func (p *Proxy) PrepareOperation(mode engine.AskMode) engine.Code {
	p.state = StateInProgress
	return p.call("PrepareOperation", func() error {
		return p.sink.PrepareOperation(mode)
	})
}

func (p *Proxy) GetStream(index uint32, mode engine.AskMode) (engine.OutStream, engine.Code) {
	p.item, p.hasItem, p.output = index, true, nil

	var w io.Writer
	if c := p.call("GetOutput", func() (err error) {
		w, err = p.sink.GetOutput(index, mode)
		return
	}); c != engine.CodeOK {
		if closer, ok := w.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, c
	}

	if w == nil {
		return nil, engine.CodeOK
	}

	p.output = w
	return &outStream{p, w}, engine.CodeOK
}

func (p *Proxy) SetOperationResult(result engine.OperationResult) engine.Code {
	if closer, ok := p.output.(io.Closer); ok {
		p.output = nil
		if c := p.call("Close", closer.Close); c != engine.CodeOK {
			return c
		}
	}

	c := p.call("SetOperationResult", func() error {
		return p.sink.SetOperationResult(result)
	})
	p.hasItem = false
	return c
}

func (p *Proxy) SetRatioInfo(in, out uint64) engine.Code {
	rs, ok := p.sink.(RatioSink)
	if !ok {
		return engine.CodeOK
	}

	return p.call("SetRatioInfo", func() error {
		return rs.SetRatioInfo(in, out)
	})
}

// call invokes fn, recording any returned error or recovered panic.
func (p *Proxy) call(op string, fn func() error) (c engine.Code) {
	defer func() {
		if r := recover(); r != nil {
			c = p.record(op, &PanicError{Value: r})
		}
	}()

	if err := fn(); err != nil {
		return p.record(op, err)
	}

	return engine.CodeOK
}

func (p *Proxy) record(op string, err error) engine.Code {
	p.pending = append(p.pending, &SinkError{Op: op, ItemID: p.item, HasItem: p.hasItem, Err: err})

	// the engine must see a failure, never a success or a soft "false".
	switch c := engine.CodeOf(err); c {
	case engine.CodeOK, engine.CodeFalse:
		return engine.CodeFail
	default:
		return c
	}
}

type outStream struct {
	p *Proxy
	w io.Writer
}

func (o *outStream) Write(b []byte) (n int, c engine.Code) {
	c = o.p.call("Write", func() (err error) {
		if n, err = o.w.Write(b); err == nil && n < len(b) {
			err = io.ErrShortWrite
		}
		return
	})
	return
}

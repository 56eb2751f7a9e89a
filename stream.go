package unarc

import (
	"io"

	"github.com/nguyengg/unarc/bridge"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
)

// Stream reads the content of a single item while it is being extracted.
//
// Reads and seeks go through the embedded bridge.Reader. If the item fails to extract, reads past the produced bytes
// return the extraction error, which is an *OutcomeError if the engine reported a non-OK result.
type Stream struct {
	*bridge.Reader

	// Item is the metadata of the item being streamed.
	Item Item

	done chan struct{}
	err  error
}

// Wait blocks until the background extraction finishes and returns its error, or an *OutcomeError if the engine
// reported a non-OK result for the item.
func (s *Stream) Wait() error {
	<-s.done
	return s.err
}

// Close releases the Stream without waiting for the extraction, which stops at its next write.
func (s *Stream) Close() error {
	return s.Reader.Close()
}

// streamSink writes a single item into a bridge.Writer.
type streamSink struct {
	extract.NoopSink
	id      uint32
	w       *bridge.Writer
	outcome error
}

func (s *streamSink) GetOutput(id uint32, mode engine.AskMode) (io.Writer, error) {
	if id != s.id || mode != engine.AskExtract {
		return nil, nil
	}

	// hide Close so the bridge is only closed with the outcome.
	return struct{ io.Writer }{s.w}, nil
}

func (s *streamSink) SetOperationResult(result engine.OperationResult) error {
	if result != engine.ResultOK {
		s.outcome = &OutcomeError{ItemID: s.id, Result: result}
		return s.w.CloseWithError(s.outcome)
	}
	return s.w.Close()
}

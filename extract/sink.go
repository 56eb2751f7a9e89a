// Package extract adapts a rich, error-returning Sink to the narrow engine.ExtractCallback boundary.
//
// The engine only understands engine.Code results. Errors and panics raised inside Sink methods are recorded by the
// Proxy, converted to the closest code for the engine, then re-attached to the engine's result once Extract returns
// so the caller sees the original cause.
package extract

import (
	"io"
	"slices"

	"github.com/nguyengg/unarc/engine"
)

// Sink receives the items of an extraction.
//
// For each item, PrepareOperation is called first, then GetOutput, then zero or more writes to the returned writer,
// then SetOperationResult. SetTotal and SetCompleted report progress in bytes.
type Sink interface {
	SetTotal(size uint64) error
	SetCompleted(completed uint64) error

	// GetOutput returns the writer for the item's content.
	//
	// A nil writer means nothing is written for this item, which is expected for directories and for
	// engine.AskTest. If the writer also implements io.Closer, it is closed right before SetOperationResult, or when the
	// extraction ends before the item's result is reported.
	GetOutput(id uint32, mode engine.AskMode) (io.Writer, error)

	PrepareOperation(mode engine.AskMode) error
	SetOperationResult(result engine.OperationResult) error
}

// RatioSink is an optional capability of Sink to receive compressed and uncompressed byte counts.
type RatioSink interface {
	SetRatioInfo(in, out uint64) error
}

// NoopSink implements every Sink method as a no-op that never provides an output.
//
// Embed NoopSink to implement only the methods you need.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) SetTotal(uint64) error {
	return nil
}

func (NoopSink) SetCompleted(uint64) error {
	return nil
}

func (NoopSink) GetOutput(uint32, engine.AskMode) (io.Writer, error) {
	return nil, nil
}

func (NoopSink) PrepareOperation(engine.AskMode) error {
	return nil
}

func (NoopSink) SetOperationResult(engine.OperationResult) error {
	return nil
}

// Sorted returns a sorted copy of ids without duplicates, as the engine requires.
func Sorted(ids []uint32) []uint32 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

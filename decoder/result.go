package decoder

import (
	"errors"
	"io"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/nguyengg/unarc/engine"
)

// resultOf classifies an error from reading an item's content.
//
// A 7z read error from an encrypted folder is a wrong password whatever the underlying decoder error is.
func resultOf(err error, e *entry) engine.OperationResult {
	var szErr *sevenzip.ReadError

	switch {
	case err == nil:
		return engine.ResultOK
	case errors.As(err, &szErr) && szErr.Encrypted:
		return engine.ResultWrongPassword
	case errors.Is(err, io.ErrUnexpectedEOF):
		return engine.ResultUnexpectedEnd
	case errors.Is(err, zip.ErrChecksum), errors.Is(err, gzip.ErrChecksum):
		return engine.ResultCRCError
	case errors.Is(err, zip.ErrAlgorithm), errors.Is(err, errors.ErrUnsupported):
		return engine.ResultUnsupportedMethod
	case e.encrypted:
		return engine.ResultWrongPassword
	default:
		return engine.ResultDataError
	}
}

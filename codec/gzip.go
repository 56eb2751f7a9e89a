package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipCodec implements Codec for gzip compression algorithm.
type GzipCodec struct {
}

var _ Codec = GzipCodec{}

func (c GzipCodec) Name() string {
	return "gzip"
}

func (c GzipCodec) Ext() string {
	return "gz"
}

func (c GzipCodec) Magic() []byte {
	return []byte{0x1f, 0x8b}
}

func (c GzipCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}

// Header reads the gzip header from src, which records the original file name and modification time if set.
//
// Only the header is consumed from src.
func (c GzipCodec) Header(src io.Reader) (gzip.Header, error) {
	r, err := gzip.NewReader(src)
	if err != nil {
		return gzip.Header{}, err
	}

	return r.Header, nil
}

package codec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// Bzip2Codec implements Codec for bzip2 compression algorithm.
type Bzip2Codec struct{}

var _ Codec = Bzip2Codec{}

func (c Bzip2Codec) Name() string {
	return "bzip2"
}

func (c Bzip2Codec) Ext() string {
	return "bz2"
}

func (c Bzip2Codec) Magic() []byte {
	return []byte{'B', 'Z', 'h'}
}

func (c Bzip2Codec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(src, nil)
}

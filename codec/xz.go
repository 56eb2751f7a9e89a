package codec

import (
	"io"

	"github.com/ulikunitz/xz"
)

// XzCodec implements Codec for xz compression algorithm.
type XzCodec struct {
}

var _ Codec = XzCodec{}

func (c XzCodec) Name() string {
	return "xz"
}

func (c XzCodec) Ext() string {
	return "xz"
}

func (c XzCodec) Magic() []byte {
	return []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
}

func (c XzCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r, err := xz.NewReader(src)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(r), nil
}

// Package codec provides the single-stream decompressors used for .gz, .xz, .zst, .lz4, and .bz2 files.
package codec

import (
	"bytes"
	"io"
)

// Codec has methods to create a decompressor for a single compressed stream.
type Codec interface {
	// Name returns the short name of the algorithm, such as "gzip".
	Name() string

	// Ext returns the extension of files compressed with this codec without the leading dot, such as "gz".
	Ext() string

	// Magic returns the bytes that every stream compressed with this codec starts with.
	Magic() []byte

	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
}

// All returns all supported codecs in a stable order.
func All() []Codec {
	return []Codec{GzipCodec{}, XzCodec{}, ZstdCodec{}, Lz4Codec{}, Bzip2Codec{}}
}

// FromName returns the Codec with the given name or extension.
func FromName(name string) (Codec, bool) {
	for _, c := range All() {
		if c.Name() == name || c.Ext() == name {
			return c, true
		}
	}

	return nil, false
}

// Detect returns the Codec whose magic bytes prefix the given header.
func Detect(header []byte) (Codec, bool) {
	for _, c := range All() {
		if bytes.HasPrefix(header, c.Magic()) {
			return c, true
		}
	}

	return nil, false
}

package snapshot

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Codec encodes whole record files. Readers choose the codec from the file
// extension, so a directory may hold plain and compressed records side by side.
type Codec interface {
	// Ext is the file extension, including the leading dot.
	Ext() string
	Encode(data []byte) ([]byte, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

var (
	// Plain stores records as JSON Lines.
	Plain Codec = plainCodec{}
	// Zstd stores records as zstd-compressed JSON Lines.
	Zstd Codec = zstdCodec{}
)

// codecs lists every codec a reader recognizes, longest extension first.
var codecs = []Codec{Zstd, Plain}

func codecFor(name string) (Codec, bool) {
	for _, c := range codecs {
		if strings.HasSuffix(name, c.Ext()) {
			return c, true
		}
	}
	return nil, false
}

type plainCodec struct{}

func (plainCodec) Ext() string { return ".jsonl" }

func (plainCodec) Encode(data []byte) ([]byte, error) {
	return data, nil
}

func (plainCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type zstdCodec struct{}

func (zstdCodec) Ext() string { return ".jsonl.zst" }

func (zstdCodec) Encode(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// decodeAll reads every byte of a record through c.
func decodeAll(c Codec, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

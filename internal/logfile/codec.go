package logfile

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec compresses/decompresses message payloads. The spec names
// compression a pluggable knob with "zstd" as the default.
type Codec interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NoneCodec passes payloads through unmodified.
type NoneCodec struct{}

func (NoneCodec) Name() string                          { return "none" }
func (NoneCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoneCodec) Decompress(data []byte) ([]byte, error) { return data, nil }

// ZstdCodec compresses with klauspost/compress's pure-Go zstd implementation.
type ZstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCodec builds a reusable encoder/decoder pair.
func NewZstdCodec() (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &ZstdCodec{encoder: enc, decoder: dec}, nil
}

func (z *ZstdCodec) Name() string { return "zstd" }

func (z *ZstdCodec) Compress(data []byte) ([]byte, error) {
	return z.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (z *ZstdCodec) Decompress(data []byte) ([]byte, error) {
	return z.decoder.DecodeAll(data, nil)
}

// Close releases the decoder's background goroutines.
func (z *ZstdCodec) Close() {
	z.decoder.Close()
}

// CodecByName resolves the pluggable codec knob by its trailer-recorded
// name. An empty name or "none" gives NoneCodec; any other unknown name
// returns an error, and the callers in this tree then use NoneCodec.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return NoneCodec{}, nil
	case "zstd":
		return NewZstdCodec()
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

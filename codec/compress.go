package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/routecache/internal/hash"
)

// Compression selects the block compression of a frame.
type Compression uint8

const (
	// CompressionNone stores the data as is.
	CompressionNone Compression = 0
	// CompressionLZ4 is fast and suits small, hot payloads.
	CompressionLZ4 Compression = 1
	// CompressionZSTD gives a better ratio for large pages.
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ErrCorruptFrame is returned when a frame cannot be decoded.
var ErrCorruptFrame = errors.New("corrupt compressed frame")

// Frame layout: [Compression uint8][UncompressedSize uint32][CRC32C uint32][Data...]
//
// The checksum covers the uncompressed data.
const frameHeaderSize = 9

// MaxFrameSize bounds the uncompressed size of a frame.
const MaxFrameSize = 64 << 20

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
	return dec
}

// Compress frames data with the requested compression. If compression does
// not save at least a tenth of the input the frame stores data uncompressed.
func Compress(data []byte, c Compression) ([]byte, error) {
	if len(data) > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds %d", len(data), MaxFrameSize)
	}

	var packed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		c, packed = CompressionNone, data
	}

	out := make([]byte, frameHeaderSize+len(packed))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], hash.CRC32C(data))
	copy(out[frameHeaderSize:], packed)
	return out, nil
}

// Decompress decodes a frame written by Compress.
func Decompress(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: frame too small for header", ErrCorruptFrame)
	}
	c := Compression(frame[0])
	size := binary.LittleEndian.Uint32(frame[1:])
	sum := binary.LittleEndian.Uint32(frame[5:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared size %d exceeds %d", ErrCorruptFrame, size, MaxFrameSize)
	}

	out, err := unpack(c, frame[frameHeaderSize:], size)
	if err != nil {
		return nil, err
	}
	if uint32(len(out)) != size {
		return nil, fmt.Errorf("%w: size mismatch", ErrCorruptFrame)
	}
	if hash.CRC32C(out) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptFrame)
	}
	return out, nil
}

func unpack(c Compression, data []byte, size uint32) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFrame, err)
		}
		return out[:n], nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFrame, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorruptFrame, c)
	}
}

package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgree(t *testing.T) {
	v := map[string]any{"url": "/a/1", "tags": []string{"x", "y"}}

	a := MustMarshal(JSON{}, v)
	b := MustMarshal(GoJSON{}, v)
	assert.JSONEq(t, string(a), string(b))

	var out map[string]any
	require.NoError(t, Default.Unmarshal(a, &out))
	assert.Equal(t, "/a/1", out["url"])
}

func TestCompress(t *testing.T) {
	page := bytes.Repeat([]byte("<li>cached segment</li>"), 400)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			frame, err := Compress(page, c)
			require.NoError(t, err)
			assert.Equal(t, byte(c), frame[0])
			if c != CompressionNone {
				assert.Less(t, len(frame), len(page))
			}

			got, err := Decompress(frame)
			require.NoError(t, err)
			assert.Equal(t, page, got)
		})
	}

	t.Run("incompressible falls back to none", func(t *testing.T) {
		frame, err := Compress([]byte("ab"), CompressionZSTD)
		require.NoError(t, err)
		assert.Equal(t, byte(CompressionNone), frame[0])

		got, err := Decompress(frame)
		require.NoError(t, err)
		assert.Equal(t, []byte("ab"), got)
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := Decompress([]byte{1, 2})
		assert.ErrorIs(t, err, ErrCorruptFrame)

		_, err = Decompress([]byte{9, 0, 0, 0, 0})
		assert.ErrorIs(t, err, ErrCorruptFrame)

		_, err = Decompress([]byte{0, 5, 0, 0, 0, 0, 0, 0, 0, 'x'})
		assert.ErrorIs(t, err, ErrCorruptFrame)
	})

	t.Run("oversized header", func(t *testing.T) {
		for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			frame := []byte{byte(c), 0, 0, 0, 0, 0, 0, 0, 0, 'x'}
			binary.LittleEndian.PutUint32(frame[1:], MaxFrameSize+1)

			_, err := Decompress(frame)
			require.ErrorIs(t, err, ErrCorruptFrame, c.String())
			assert.Contains(t, err.Error(), "exceeds")
		}
	})

	t.Run("checksum", func(t *testing.T) {
		frame, err := Compress([]byte("flight payload"), CompressionNone)
		require.NoError(t, err)
		frame[len(frame)-1] ^= 0xff

		_, err = Decompress(frame)
		assert.ErrorIs(t, err, ErrCorruptFrame)
		assert.Contains(t, err.Error(), "checksum")
	})
}

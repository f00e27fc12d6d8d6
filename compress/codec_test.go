package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regraft/regraft/format"
)

func testPayload() []byte {
	// Repetitive data so every codec actually shrinks it.
	payload := make([]byte, 0, 8192)
	for i := 0; i < 256; i++ {
		payload = append(payload, bytes.Repeat([]byte{byte(i)}, 32)...)
	}

	return payload
}

func TestCreateCodec(t *testing.T) {
	testCases := []struct {
		compression format.CompressionType
		wantErr     bool
	}{
		{format.CompressionNone, false},
		{format.CompressionZstd, false},
		{format.CompressionS2, false},
		{format.CompressionLZ4, false},
		{format.CompressionXZ, false},
		{format.CompressionType(0xFF), true},
	}

	for _, tc := range testCases {
		t.Run(tc.compression.String(), func(t *testing.T) {
			codec, err := CreateCodec(tc.compression, "payload")
			if tc.wantErr {
				require.Error(t, err)
				require.Nil(t, codec)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, codec)
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	payload := testPayload()

	for _, compression := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
		format.CompressionXZ,
	} {
		t.Run(compression.String(), func(t *testing.T) {
			codec, err := GetCodec(compression)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)

			if compression != format.CompressionNone {
				require.Less(t, len(compressed), len(payload))
			}
		})
	}
}

func TestCodecEmptyInput(t *testing.T) {
	for compression := range builtinCodecs {
		t.Run(compression.String(), func(t *testing.T) {
			codec, err := GetCodec(compression)
			require.NoError(t, err)

			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestDecompressCorruptInput(t *testing.T) {
	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01, 0x02, 0x03}

	for _, compression := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionXZ,
	} {
		t.Run(compression.String(), func(t *testing.T) {
			codec, err := GetCodec(compression)
			require.NoError(t, err)

			_, err = codec.Decompress(garbage)
			require.Error(t, err)
		})
	}
}

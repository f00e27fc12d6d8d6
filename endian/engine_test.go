package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetEngines(t *testing.T) {
	require.Equal(t, binary.LittleEndian, GetLittleEndianEngine())
	require.Equal(t, binary.BigEndian, GetBigEndianEngine())
}

func TestCheckEndianness(t *testing.T) {
	native := CheckEndianness()
	if IsNativeLittleEndian() {
		require.Equal(t, binary.LittleEndian, native)
		require.False(t, IsNativeBigEndian())
	} else {
		require.Equal(t, binary.BigEndian, native)
		require.True(t, IsNativeBigEndian())
	}
}

func TestCompareNativeEndian(t *testing.T) {
	little := CompareNativeEndian(GetLittleEndianEngine())
	big := CompareNativeEndian(GetBigEndianEngine())
	require.NotEqual(t, little, big)
}

func TestEngineRoundTrip(t *testing.T) {
	for _, engine := range []EndianEngine{GetLittleEndianEngine(), GetBigEndianEngine()} {
		buf := engine.AppendUint32(nil, 0xCAFEBABE)
		require.Len(t, buf, 4)
		require.Equal(t, uint32(0xCAFEBABE), engine.Uint32(buf))

		buf = engine.AppendUint64(nil, 0x1122334455667788)
		require.Equal(t, uint64(0x1122334455667788), engine.Uint64(buf))
	}
}

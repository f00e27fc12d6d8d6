package archive

import (
	"github.com/regraft/regraft/endian"
	"github.com/regraft/regraft/format"
	"github.com/regraft/regraft/internal/options"
)

type config struct {
	compression format.CompressionType
	engine      endian.EndianEngine
	omit        OmitMask
}

// Option configures Save.
type Option = options.Option[*config]

func defaultConfig() *config {
	return &config{
		compression: format.CompressionZstd,
		engine:      endian.GetLittleEndianEngine(),
	}
}

// WithCompression selects the body compression algorithm. Defaults to zstd;
// the type is validated against the codec registry when Save runs.
func WithCompression(compression format.CompressionType) Option {
	return options.NoError(func(c *config) {
		c.compression = compression
	})
}

// WithBigEndian serializes the body big-endian. The header stays
// little-endian either way, so Load can always read the flag.
func WithBigEndian() Option {
	return options.NoError(func(c *config) {
		c.engine = endian.GetBigEndianEngine()
	})
}

// WithOmit drops the selected payload classes from the archive. Loading
// such an archive yields a graph that is deliberately not equal to the
// saved one.
func WithOmit(mask OmitMask) Option {
	return options.NoError(func(c *config) {
		c.omit |= mask
	})
}

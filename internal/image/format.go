// Package image resolves light cache texel formats, plans texture container
// shapes and assembles raw texel payloads into container buffers.
package image

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// DataKind is the texel storage kind tag of a light cache texture.
// The values are single bits and mutually exclusive.
type DataKind int8

const (
	// DataKindByte stores 8-bit unsigned normalized channels.
	DataKindByte DataKind = 1 << 0

	// DataKindFloat stores 32-bit float channels.
	DataKindFloat DataKind = 1 << 1

	// DataKindUint stores a packed 32-bit value per texel.
	// Baked caches use it for the 11/11/10-bit float triple.
	DataKindUint DataKind = 1 << 2
)

// String returns a string representation of the data kind.
func (k DataKind) String() string {
	switch k {
	case DataKindByte:
		return "byte"
	case DataKindFloat:
		return "float"
	case DataKindUint:
		return "uint"
	default:
		return fmt.Sprintf("DataKind(%d)", int8(k))
	}
}

// PixelFormat identifies the texel layout of a container.
type PixelFormat uint8

const (
	// FormatUnknown is the zero value and never returned by Resolve.
	FormatUnknown PixelFormat = iota

	// FormatR8Unorm is one 8-bit unsigned normalized channel.
	FormatR8Unorm

	// FormatRG8Unorm is two 8-bit unsigned normalized channels.
	FormatRG8Unorm

	// FormatRGBA8Unorm is four 8-bit unsigned normalized channels.
	FormatRGBA8Unorm

	// FormatR32Float is one 32-bit float channel.
	FormatR32Float

	// FormatRG32Float is two 32-bit float channels.
	FormatRG32Float

	// FormatRGB32Float is three 32-bit float channels.
	FormatRGB32Float

	// FormatRGBA32Float is four 32-bit float channels.
	FormatRGBA32Float

	// FormatRG11B10Float is a packed 11/11/10-bit unsigned float triple.
	FormatRG11B10Float

	// formatCount is the number of formats (for internal use).
	formatCount
)

// FormatInfo contains metadata about a pixel format.
type FormatInfo struct {
	// Name is the short name used in logs and manifests.
	Name string

	// BytesPerPixel is the number of bytes per texel.
	BytesPerPixel int

	// Channels is the number of color channels.
	Channels int

	// DXGI is the DXGI_FORMAT value written to DDS containers.
	DXGI uint32

	// GPU is the WebGPU equivalent, or TextureFormatUndefined when
	// WebGPU has no matching format.
	GPU gputypes.TextureFormat
}

// formatInfoTable contains metadata for each format.
var formatInfoTable = [formatCount]FormatInfo{
	FormatUnknown: {Name: "Unknown"},
	FormatR8Unorm: {
		Name:          "R8_UNORM",
		BytesPerPixel: 1,
		Channels:      1,
		DXGI:          61,
		GPU:           gputypes.TextureFormatR8Unorm,
	},
	FormatRG8Unorm: {
		Name:          "R8G8_UNORM",
		BytesPerPixel: 2,
		Channels:      2,
		DXGI:          49,
		GPU:           gputypes.TextureFormatRG8Unorm,
	},
	FormatRGBA8Unorm: {
		Name:          "R8G8B8A8_UNORM",
		BytesPerPixel: 4,
		Channels:      4,
		DXGI:          28,
		GPU:           gputypes.TextureFormatRGBA8Unorm,
	},
	FormatR32Float: {
		Name:          "R32_FLOAT",
		BytesPerPixel: 4,
		Channels:      1,
		DXGI:          41,
		GPU:           gputypes.TextureFormatR32Float,
	},
	FormatRG32Float: {
		Name:          "R32G32_FLOAT",
		BytesPerPixel: 8,
		Channels:      2,
		DXGI:          16,
		GPU:           gputypes.TextureFormatRG32Float,
	},
	FormatRGB32Float: {
		Name:          "R32G32B32_FLOAT",
		BytesPerPixel: 12,
		Channels:      3,
		DXGI:          6,
		GPU:           gputypes.TextureFormatUndefined,
	},
	FormatRGBA32Float: {
		Name:          "R32G32B32A32_FLOAT",
		BytesPerPixel: 16,
		Channels:      4,
		DXGI:          2,
		GPU:           gputypes.TextureFormatRGBA32Float,
	},
	FormatRG11B10Float: {
		Name:          "R11G11B10_FLOAT",
		BytesPerPixel: 4,
		Channels:      3,
		DXGI:          26,
		GPU:           gputypes.TextureFormatRG11B10Ufloat,
	},
}

// Info returns the FormatInfo for this format.
func (f PixelFormat) Info() FormatInfo {
	if f >= formatCount {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// BytesPerPixel returns the number of bytes per texel for this format.
func (f PixelFormat) BytesPerPixel() int {
	return f.Info().BytesPerPixel
}

// Channels returns the number of color channels.
func (f PixelFormat) Channels() int {
	return f.Info().Channels
}

// DXGI returns the DXGI_FORMAT value of this format.
func (f PixelFormat) DXGI() uint32 {
	return f.Info().DXGI
}

// GPUFormat returns the WebGPU texture format equivalent.
func (f PixelFormat) GPUFormat() gputypes.TextureFormat {
	return f.Info().GPU
}

// IsValid returns true if the format is a known, resolvable format.
func (f PixelFormat) IsValid() bool {
	return f > FormatUnknown && f < formatCount
}

// String returns a string representation of the format.
func (f PixelFormat) String() string {
	if f >= formatCount {
		return "Unknown"
	}
	return formatInfoTable[f].Name
}

// RowBytes calculates the number of bytes needed for a row of the given width.
func (f PixelFormat) RowBytes(width int) int {
	return width * f.BytesPerPixel()
}

// ImageBytes calculates the total number of bytes needed for one 2D image.
func (f PixelFormat) ImageBytes(width, height int) int {
	return f.RowBytes(width) * height
}

// Resolve maps a light cache data kind and channel count to its pixel format.
//
// Only the combinations baked caches are known to produce are accepted:
//
//	byte:  1, 2, 4 channels
//	float: 1, 2, 3, 4 channels
//	uint:  1 channel (packed 11/11/10-bit float)
//
// Anything else fails with ErrUnsupportedFormat.
func Resolve(kind DataKind, channels int) (PixelFormat, error) {
	switch kind {
	case DataKindByte:
		switch channels {
		case 1:
			return FormatR8Unorm, nil
		case 2:
			return FormatRG8Unorm, nil
		case 4:
			return FormatRGBA8Unorm, nil
		}
	case DataKindFloat:
		switch channels {
		case 1:
			return FormatR32Float, nil
		case 2:
			return FormatRG32Float, nil
		case 3:
			return FormatRGB32Float, nil
		case 4:
			return FormatRGBA32Float, nil
		}
	case DataKindUint:
		if channels == 1 {
			return FormatRG11B10Float, nil
		}
	default:
		return FormatUnknown, fmt.Errorf("%w: data kind %d", ErrUnsupportedFormat, int8(kind))
	}
	return FormatUnknown, fmt.Errorf("%w: %s with %d channels", ErrUnsupportedFormat, kind, channels)
}

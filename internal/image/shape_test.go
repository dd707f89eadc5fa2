package image

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_Cube(t *testing.T) {
	for depth := 1; depth <= 60; depth++ {
		shape, err := Plan(Size{16, 16, depth}, 2, true, FormatRGBA8Unorm)
		if depth%6 != 0 {
			assert.ErrorIs(t, err, ErrInvalidCubeGeometry, "depth %d", depth)
			continue
		}
		require.NoError(t, err, "depth %d", depth)
		assert.Equal(t, depth/6, shape.ArraySize, "depth %d", depth)
		assert.True(t, shape.Cubemap, "depth %d", depth)
		assert.Equal(t, 3, shape.MipCount, "depth %d", depth)
	}
}

func TestPlan_Grid(t *testing.T) {
	for _, depth := range []int{1, 5, 6, 16, 35, 36} {
		shape, err := Plan(Size{32, 8, depth}, 7, false, FormatR8Unorm)
		require.NoError(t, err, "depth %d", depth)
		assert.Equal(t, 1, shape.MipCount, "depth %d", depth)
		assert.False(t, shape.Cubemap, "depth %d", depth)
		assert.Equal(t, depth, shape.ArraySize, "depth %d", depth)
		assert.Equal(t, [3]int{32, 8, 1}, [3]int{shape.Width, shape.Height, shape.Depth}, "depth %d", depth)
	}
}

func TestPlan_InvalidDimensions(t *testing.T) {
	huge := math.MaxInt32
	tests := []struct {
		name string
		size Size
		mips int
		cube bool
		fmt  PixelFormat
	}{
		{"zero width", Size{0, 4, 6}, 0, true, FormatR8Unorm},
		{"negative height", Size{4, -4, 6}, 0, false, FormatR8Unorm},
		{"zero depth", Size{4, 4, 0}, 0, false, FormatR8Unorm},
		{"negative mips", Size{4, 4, 6}, -1, true, FormatR8Unorm},
		{"too many mips", Size{4, 4, 6}, MaxMipLevels, true, FormatR8Unorm},
		{"overflowing grid", Size{huge, huge, huge}, 0, false, FormatRGBA32Float},
		{"overflowing cube", Size{huge, huge, 6 * (huge / 6)}, 3, true, FormatRGBA32Float},
		{"over container limit", Size{1 << 16, 1 << 16, 2}, 0, false, FormatR8Unorm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.size, tt.mips, tt.cube, tt.fmt)
			assert.ErrorIs(t, err, ErrInvalidDimensions)
		})
	}
}

func TestPlan_AtContainerLimit(t *testing.T) {
	// 65536 x 65535 single-byte texels is the largest grid layer below the limit.
	shape, err := Plan(Size{1 << 16, 1<<16 - 1, 1}, 0, false, FormatR8Unorm)
	require.NoError(t, err)
	assert.LessOrEqual(t, uint64(shape.PayloadSize()), MaxPayloadBytes)
}

func TestPlan_InvalidFormat(t *testing.T) {
	_, err := Plan(Size{4, 4, 6}, 0, true, FormatUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestContainerShape_PayloadSize(t *testing.T) {
	tests := []struct {
		name  string
		size  Size
		mips  int
		cube  bool
		fmt   PixelFormat
		bytes int
	}{
		{
			name: "cube array with mips",
			size: Size{128, 128, 36}, mips: 3, cube: true, fmt: FormatRGBA32Float,
			bytes: (128*128 + 64*64 + 32*32 + 16*16) * 36 * 16,
		},
		{
			name: "grid",
			size: Size{32, 32, 16}, cube: false, fmt: FormatR8Unorm,
			bytes: 32 * 32 * 16,
		},
		{
			name: "mips clamp at one texel",
			size: Size{4, 2, 6}, mips: 3, cube: true, fmt: FormatRG8Unorm,
			bytes: (4*2 + 2*1 + 1*1 + 1*1) * 6 * 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := Plan(tt.size, tt.mips, tt.cube, tt.fmt)
			require.NoError(t, err)
			assert.Equal(t, tt.bytes, shape.PayloadSize())
		})
	}
}

func TestContainerShape_Descriptor(t *testing.T) {
	shape, err := Plan(Size{64, 64, 12}, 2, true, FormatRGBA8Unorm)
	require.NoError(t, err)

	desc := shape.Descriptor("cube_tx")
	assert.Equal(t, gputypes.NewExtent3D(64, 64, 12), desc.Size)
	assert.Equal(t, uint32(3), desc.MipLevelCount)
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, desc.Format)
	assert.Equal(t, gputypes.TextureDimension2D, desc.Dimension)
	assert.Equal(t, gputypes.TextureViewDimensionCubeArray, shape.ViewDimension())

	grid, err := Plan(Size{8, 8, 4}, 0, false, FormatR8Unorm)
	require.NoError(t, err)
	assert.Equal(t, gputypes.TextureViewDimension2DArray, grid.ViewDimension())
}

package image

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/gogpu/gputypes"
)

// Layout errors.
var (
	// ErrUnsupportedFormat is returned when a data kind and channel count
	// pair has no pixel format.
	ErrUnsupportedFormat = errors.New("image: unsupported light cache format")

	// ErrInvalidCubeGeometry is returned when a cube texture's layer count
	// is not a multiple of six.
	ErrInvalidCubeGeometry = errors.New("image: not a cube map, layers not divisible by 6")

	// ErrInvalidDimensions is returned when a size component is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")
)

// FacesPerCube is the number of layers one cubemap occupies.
const FacesPerCube = 6

// MaxPayloadBytes bounds the payload of one container. DDS stores sizes
// and pitches as 32-bit values.
const MaxPayloadBytes uint64 = math.MaxUint32

// MaxMipLevels is the longest mip chain of a 32-bit extent.
const MaxMipLevels = 32

// Size is the declared size vector of a light cache texture:
// width, height and depth-or-layer count.
type Size [3]int

// Width returns the first component.
func (s Size) Width() int { return s[0] }

// Height returns the second component.
func (s Size) Height() int { return s[1] }

// Depth returns the third component.
func (s Size) Depth() int { return s[2] }

// String formats the size as WxHxD.
func (s Size) String() string {
	return fmt.Sprintf("%dx%dx%d", s[0], s[1], s[2])
}

// ContainerShape describes the texture container a payload is assembled into.
//
// For cubemaps ArraySize counts cubes, each holding FacesPerCube layers.
// Otherwise ArraySize counts plain 2D layers and MipCount is 1.
type ContainerShape struct {
	Width     int
	Height    int
	Depth     int
	MipCount  int
	ArraySize int
	Cubemap   bool
	Format    PixelFormat
}

// Plan computes the container shape for a light cache texture.
//
// With cube set, size.Depth() must be a multiple of FacesPerCube and the
// container gets mips levels beyond the base level (so MipCount is
// mips+1). Without cube the texture is a flat grid of size.Depth() layers
// with a single level; mips is ignored.
func Plan(size Size, mips int, cube bool, format PixelFormat) (ContainerShape, error) {
	if size.Width() <= 0 || size.Height() <= 0 || size.Depth() <= 0 {
		return ContainerShape{}, fmt.Errorf("%w: %s", ErrInvalidDimensions, size)
	}
	if !format.IsValid() {
		return ContainerShape{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	shape := ContainerShape{
		Width:  size.Width(),
		Height: size.Height(),
		Depth:  1,
		Format: format,
	}

	if !cube {
		shape.MipCount = 1
		shape.ArraySize = size.Depth()
		return shape, checkPayload(shape)
	}

	if size.Depth()%FacesPerCube != 0 {
		return ContainerShape{}, fmt.Errorf("%w: %d layers", ErrInvalidCubeGeometry, size.Depth())
	}
	if mips < 0 || mips >= MaxMipLevels {
		return ContainerShape{}, fmt.Errorf("%w: %d mip levels", ErrInvalidDimensions, mips)
	}
	shape.MipCount = mips + 1
	shape.ArraySize = size.Depth() / FacesPerCube
	shape.Cubemap = true
	return shape, checkPayload(shape)
}

// checkPayload rejects shapes whose payload exceeds MaxPayloadBytes or
// would overflow int.
func checkPayload(s ContainerShape) error {
	limit := min(MaxPayloadBytes, uint64(math.MaxInt))
	layers := uint64(s.Depth) * uint64(s.Layers())

	var total uint64
	for level := range s.MipCount {
		w, h := MipExtent(s.Width, s.Height, level)
		n, ok := mul(uint64(w), uint64(h), uint64(s.Format.BytesPerPixel()), layers)
		if !ok || n > limit-total {
			return fmt.Errorf("%w: %dx%d x%d layers of %s exceeds %d bytes",
				ErrInvalidDimensions, s.Width, s.Height, s.Layers(), s.Format, limit)
		}
		total += n
	}
	return nil
}

// mul multiplies factors, reporting false on uint64 overflow.
func mul(factors ...uint64) (uint64, bool) {
	p := uint64(1)
	for _, f := range factors {
		hi, lo := bits.Mul64(p, f)
		if hi != 0 {
			return 0, false
		}
		p = lo
	}
	return p, true
}

// Layers returns the number of 2D layers per mip level.
func (s ContainerShape) Layers() int {
	if s.Cubemap {
		return s.ArraySize * FacesPerCube
	}
	return s.ArraySize
}

// LevelBytes returns the payload size of one mip level across all layers.
func (s ContainerShape) LevelBytes(level int) int {
	w, h := MipExtent(s.Width, s.Height, level)
	return s.Format.ImageBytes(w, h) * s.Depth * s.Layers()
}

// PayloadSize returns the exact byte size of the whole container payload.
func (s ContainerShape) PayloadSize() int {
	total := 0
	for level := range s.MipCount {
		total += s.LevelBytes(level)
	}
	return total
}

// ViewDimension returns the WebGPU view dimension the container maps to.
func (s ContainerShape) ViewDimension() gputypes.TextureViewDimension {
	if s.Cubemap {
		return gputypes.TextureViewDimensionCubeArray
	}
	return gputypes.TextureViewDimension2DArray
}

// Descriptor returns a WebGPU texture descriptor for uploading the container.
// Format is TextureFormatUndefined for formats WebGPU cannot express.
func (s ContainerShape) Descriptor(label string) gputypes.TextureDescriptor {
	return gputypes.TextureDescriptor{
		Label:         label,
		Size:          gputypes.NewExtent3D(uint32(s.Width), uint32(s.Height), uint32(s.Layers())),
		MipLevelCount: uint32(s.MipCount),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        s.Format.GPUFormat(),
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// String returns a compact description used in logs.
func (s ContainerShape) String() string {
	kind := "array"
	if s.Cubemap {
		kind = "cube-array"
	}
	return fmt.Sprintf("%s %dx%d x%d mips=%d %s", kind, s.Width, s.Height, s.ArraySize, s.MipCount, s.Format)
}

// Package dds writes light cache textures as DirectDraw Surface containers.
//
// Every container uses the DX10 extended header so that float and packed
// formats, texture arrays and cubemap arrays can all be expressed.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Ext is the file extension of DDS containers.
const Ext = ".dds"

// DDS header constants.
const (
	Magic      = 0x20534444 // "DDS "
	HeaderSize = 124

	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPitch       = 0x8
	flagPixelFormat = 0x1000
	flagMipMapCount = 0x20000

	pixelFormatSize = 32
	pfFourCC        = 0x4

	capsComplex = 0x8
	capsTexture = 0x1000
	capsMipMap  = 0x400000

	caps2Cubemap  = 0x200
	caps2AllFaces = 0xFC00 // +X, -X, +Y, -Y, +Z, -Z

	dimensionTexture2D = 3
	miscTextureCube    = 0x4
)

var fourCCDX10 = [4]byte{'D', 'X', '1', '0'}

// ErrNotDDS is returned when a stream does not start with a DDS header.
var ErrNotDDS = errors.New("dds: not a DDS file")

// PixelFormat is the DDS_PIXELFORMAT structure (32 bytes).
type PixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// DX10Header is the extended header for DXGI formats (20 bytes).
type DX10Header struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

// Header is the complete header of a DX10 DDS file, magic included.
type Header struct {
	Magic             uint32
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       PixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
	DX10              DX10Header
}

// EncodedSize is the on-disk size of Header.
const EncodedSize = 4 + HeaderSize + 20

// IsCubemap reports whether the header describes a cubemap (array).
func (h *Header) IsCubemap() bool {
	return h.DX10.MiscFlag&miscTextureCube != 0
}

// Mips returns the mip level count, treating an absent count as 1.
func (h *Header) Mips() uint32 {
	if h.Flags&flagMipMapCount == 0 || h.MipMapCount == 0 {
		return 1
	}
	return h.MipMapCount
}

// String returns a human-readable summary.
func (h *Header) String() string {
	kind := "2d-array"
	if h.IsCubemap() {
		kind = "cube-array"
	}
	return fmt.Sprintf("%s %dx%d array=%d mips=%d dxgi=%d",
		kind, h.Width, h.Height, h.DX10.ArraySize, h.Mips(), h.DX10.DXGIFormat)
}

// ReadHeader decodes a DX10 DDS header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short header", ErrNotDDS)
		}
		return nil, fmt.Errorf("dds: read header: %w", err)
	}
	if h.Magic != Magic || h.Size != HeaderSize {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrNotDDS, h.Magic)
	}
	if h.PixelFormat.Flags&pfFourCC == 0 || h.PixelFormat.FourCC != fourCCDX10 {
		return nil, fmt.Errorf("%w: missing DX10 extension", ErrNotDDS)
	}
	return &h, nil
}

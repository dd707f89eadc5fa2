package dds

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gogpu/lightcache/internal/image"
)

// ErrInvalidShape is returned when a container shape cannot be stored.
var ErrInvalidShape = errors.New("dds: invalid container shape")

// Image is a DDS container with its payload.
//
// The payload is level-major: every layer of mip 0, then every layer of
// mip 1 and so on. WriteTo reorders it into the DDS slice-major order.
type Image struct {
	shape   image.ContainerShape
	payload []byte
}

// New allocates a container for shape with a zeroed payload of exactly
// shape.PayloadSize() bytes.
func New(shape image.ContainerShape) (*Image, error) {
	if shape.Width <= 0 || shape.Height <= 0 || shape.Depth != 1 || shape.ArraySize <= 0 || shape.MipCount <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShape, shape)
	}
	if !shape.Format.IsValid() {
		return nil, fmt.Errorf("%w: format %s", ErrInvalidShape, shape.Format)
	}
	if !shape.Cubemap && shape.MipCount != 1 {
		return nil, fmt.Errorf("%w: %d mips on a non-cube array", ErrInvalidShape, shape.MipCount)
	}

	return &Image{
		shape:   shape,
		payload: make([]byte, shape.PayloadSize()),
	}, nil
}

// Shape returns the container shape.
func (m *Image) Shape() image.ContainerShape {
	return m.shape
}

// Payload returns the writable payload. Its length never changes.
func (m *Image) Payload() []byte {
	return m.payload
}

// Header builds the DDS header for the container.
func (m *Image) Header() Header {
	s := m.shape
	h := Header{
		Magic:             Magic,
		Size:              HeaderSize,
		Flags:             flagCaps | flagHeight | flagWidth | flagPixelFormat | flagPitch,
		Height:            uint32(s.Height),
		Width:             uint32(s.Width),
		PitchOrLinearSize: uint32(s.Format.RowBytes(s.Width)),
		MipMapCount:       uint32(s.MipCount),
		PixelFormat: PixelFormat{
			Size:   pixelFormatSize,
			Flags:  pfFourCC,
			FourCC: fourCCDX10,
		},
		Caps: capsTexture,
		DX10: DX10Header{
			DXGIFormat:        s.Format.DXGI(),
			ResourceDimension: dimensionTexture2D,
			ArraySize:         uint32(s.ArraySize),
		},
	}

	if s.MipCount > 1 {
		h.Flags |= flagMipMapCount
		h.Caps |= capsMipMap | capsComplex
	}
	if s.Layers() > 1 {
		h.Caps |= capsComplex
	}
	if s.Cubemap {
		h.Caps2 = caps2Cubemap | caps2AllFaces
		h.DX10.MiscFlag = miscTextureCube
	}
	return h
}

// WriteTo serializes the header and payload to w.
// Layers are written one after another, each with its full mip chain.
func (m *Image) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	h := m.Header()
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return written, fmt.Errorf("dds: write header: %w", err)
	}
	written += EncodedSize

	levels := m.shape.Levels()
	for layer := range m.shape.Layers() {
		for _, lvl := range levels {
			n, err := bw.Write(lvl.Layer(m.payload, layer))
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("dds: write layer %d level %d: %w", layer, lvl.Level, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("dds: flush: %w", err)
	}
	return written, nil
}

// Save writes the container to path, creating or truncating the file.
func (m *Image) Save(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("dds: create file: %w", err)
	}

	if _, err := m.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

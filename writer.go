package lightcache

import (
	"github.com/gogpu/lightcache/internal/dds"
	"github.com/gogpu/lightcache/internal/image"
)

// ContainerShape is the planned shape of a texture container.
type ContainerShape = image.ContainerShape

// PixelFormat identifies the texel layout of a container.
type PixelFormat = image.PixelFormat

// Container is an allocated texture container waiting for its payload.
type Container interface {
	// Payload returns a buffer of exactly shape.PayloadSize() bytes,
	// level-major: every layer of mip 0, then every layer of mip 1.
	Payload() []byte
	// Save writes the header and payload to path.
	Save(path string) error
}

// ContainerWriter allocates containers for planned shapes.
type ContainerWriter interface {
	// Ext is the file extension of saved containers, dot included.
	Ext() string
	Create(shape ContainerShape) (Container, error)
}

// DDSWriter writes DirectDraw Surface containers with the DX10 header.
type DDSWriter struct{}

// Ext returns ".dds".
func (DDSWriter) Ext() string { return dds.Ext }

// Create allocates a DDS container.
func (DDSWriter) Create(shape ContainerShape) (Container, error) {
	img, err := dds.New(shape)
	if err != nil {
		return nil, err
	}
	return img, nil
}

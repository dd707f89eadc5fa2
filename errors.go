package lightcache

import (
	"github.com/gogpu/lightcache/internal/blend"
	"github.com/gogpu/lightcache/internal/image"
)

// Errors callers can match with errors.Is.
var (
	// ErrUnsupportedFormat is returned when a texture's data kind and
	// channel count have no pixel format.
	ErrUnsupportedFormat = image.ErrUnsupportedFormat

	// ErrInvalidCubeGeometry is returned when a cube texture's layer count
	// is not a multiple of six.
	ErrInvalidCubeGeometry = image.ErrInvalidCubeGeometry

	// ErrIncompletePayload is returned when the source texels do not fill
	// the container.
	ErrIncompletePayload = image.ErrIncompletePayload

	// ErrPayloadOverflow is returned when the source texels do not fit the
	// container.
	ErrPayloadOverflow = image.ErrPayloadOverflow

	// ErrNullRecord is returned by Record.Get for a null reference.
	ErrNullRecord = blend.ErrNullPointer
)

// PayloadError reports a byte accounting failure with its counts.
type PayloadError = image.PayloadError

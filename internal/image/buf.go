package image

import (
	"errors"
	"fmt"
)

// Payload errors.
var (
	// ErrPayloadOverflow is returned when a source would write past the end
	// of the destination buffer.
	ErrPayloadOverflow = errors.New("image: payload overflows container")

	// ErrIncompletePayload is returned when the sources leave part of the
	// destination buffer unfilled.
	ErrIncompletePayload = errors.New("image: not all data was copied to the image")
)

// PayloadError reports a payload conservation violation.
// It matches ErrPayloadOverflow or ErrIncompletePayload with errors.Is.
type PayloadError struct {
	Err       error
	Capacity  int // destination size in bytes
	Written   int // bytes copied before the failure
	Want      int // bytes the rejected source needed (overflow only)
	Remaining int // unfilled destination bytes
}

func (e *PayloadError) Error() string {
	if errors.Is(e.Err, ErrPayloadOverflow) {
		return fmt.Sprintf("%v: source of %d bytes with %d of %d bytes remaining",
			e.Err, e.Want, e.Remaining, e.Capacity)
	}
	return fmt.Sprintf("%v, remaining bytes: %d (capacity %d)", e.Err, e.Remaining, e.Capacity)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// PayloadBuffer fills a destination byte region front to back.
//
// Every Write lands directly after the previous one. A Write that does not
// fit is rejected whole, leaving already written bytes untouched.
// PayloadBuffer is not safe for concurrent use.
type PayloadBuffer struct {
	data []byte
	off  int
}

// NewPayloadBuffer wraps data as an empty destination.
// The buffer does not copy data; it writes into it in place.
func NewPayloadBuffer(data []byte) *PayloadBuffer {
	return &PayloadBuffer{data: data}
}

// Write copies p into the next unfilled region.
// It implements io.Writer, but never performs a short write.
func (b *PayloadBuffer) Write(p []byte) (int, error) {
	if len(p) > b.Remaining() {
		return 0, &PayloadError{
			Err:       ErrPayloadOverflow,
			Capacity:  len(b.data),
			Written:   b.off,
			Want:      len(p),
			Remaining: b.Remaining(),
		}
	}
	n := copy(b.data[b.off:], p)
	b.off += n
	return n, nil
}

// Len returns the number of bytes written so far.
func (b *PayloadBuffer) Len() int {
	return b.off
}

// Cap returns the destination capacity.
func (b *PayloadBuffer) Cap() int {
	return len(b.data)
}

// Remaining returns the number of unfilled bytes.
func (b *PayloadBuffer) Remaining() int {
	return len(b.data) - b.off
}

// Finish checks that the destination is completely filled.
func (b *PayloadBuffer) Finish() error {
	if rem := b.Remaining(); rem != 0 {
		return &PayloadError{
			Err:       ErrIncompletePayload,
			Capacity:  len(b.data),
			Written:   b.off,
			Remaining: rem,
		}
	}
	return nil
}

// Assemble copies sources into dst in order, back to back.
//
// The total length of sources must equal len(dst) exactly. A source that
// would overflow dst fails before any of its bytes are copied; a shortfall
// fails with a PayloadError whose Remaining holds the missing byte count.
func Assemble(dst []byte, sources ...[]byte) error {
	buf := NewPayloadBuffer(dst)
	for i, src := range sources {
		if _, err := buf.Write(src); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
	}
	return buf.Finish()
}

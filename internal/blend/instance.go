package blend

import (
	"bytes"
	"fmt"
	"iter"
)

// Instance is one struct record inside a block. Instances are read-only
// views over the file buffer.
type Instance struct {
	file   *File
	layout *Layout
	data   []byte
}

// TypeName returns the struct name, e.g. "Scene".
func (in *Instance) TypeName() string {
	return in.layout.Name
}

// Layout returns the struct layout.
func (in *Instance) Layout() *Layout {
	return in.layout
}

// File returns the owning file.
func (in *Instance) File() *File {
	return in.file
}

func (in *Instance) fail(field string, err error) error {
	return &FieldError{Struct: in.layout.Name, Field: field, Err: err}
}

func (in *Instance) field(name string) (*Field, error) {
	f, ok := in.layout.Field(name)
	if !ok {
		return nil, in.fail(name, ErrFieldNotFound)
	}
	return f, nil
}

func (in *Instance) raw(f *Field) []byte {
	return in.data[f.Offset : f.Offset+f.Size]
}

func (in *Instance) pointerAt(b []byte) uint64 {
	if in.file.Header.PointerSize == 4 {
		return uint64(in.file.Header.Order.Uint32(b))
	}
	return in.file.Header.Order.Uint64(b)
}

// Pointer returns the raw saved address held by a pointer field.
func (in *Instance) Pointer(name string) (uint64, error) {
	f, err := in.field(name)
	if err != nil {
		return 0, err
	}
	if !f.Pointer || f.Count != 1 {
		return 0, in.fail(name, fmt.Errorf("%w: %s is not a pointer", ErrTypeMismatch, f.Decl))
	}
	return in.pointerAt(in.raw(f)), nil
}

// IsNull reports whether a pointer field is null.
func (in *Instance) IsNull(name string) (bool, error) {
	p, err := in.Pointer(name)
	if err != nil {
		return false, err
	}
	return p == 0, nil
}

// target resolves a pointer field to its block and record layout. The
// declared type wins unless it is void, in which case the block's own
// struct describes the records.
func (in *Instance) target(name string) (*Field, *Block, *Layout, error) {
	addr, err := in.Pointer(name)
	if err != nil {
		return nil, nil, nil, err
	}
	f, _ := in.layout.Field(name)
	if addr == 0 {
		return f, nil, nil, nil
	}

	b, ok := in.file.BlockAt(addr)
	if !ok {
		return nil, nil, nil, in.fail(name, fmt.Errorf("%w: 0x%x", ErrDanglingPointer, addr))
	}

	idx := in.file.DNA.structForType(f.TypeIndex)
	if idx < 0 {
		if f.Type != "void" {
			return f, b, nil, nil
		}
		idx = b.SDNA
	}
	l, err := in.file.Layout(idx)
	if err != nil {
		return nil, nil, nil, in.fail(name, err)
	}
	return f, b, l, nil
}

// Get returns the struct a field refers to: an embedded struct in place or
// the first record behind a pointer.
func (in *Instance) Get(name string) (*Instance, error) {
	f, err := in.field(name)
	if err != nil {
		return nil, err
	}

	if !f.Pointer {
		if f.Struct < 0 || f.Count != 1 {
			return nil, in.fail(name, fmt.Errorf("%w: %s %s is not a struct", ErrTypeMismatch, f.Type, f.Decl))
		}
		l, err := in.file.Layout(f.Struct)
		if err != nil {
			return nil, in.fail(name, err)
		}
		return &Instance{file: in.file, layout: l, data: in.raw(f)}, nil
	}

	_, b, l, err := in.target(name)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, in.fail(name, ErrNullPointer)
	}
	if l == nil {
		return nil, in.fail(name, fmt.Errorf("%w: %s points to %s", ErrTypeMismatch, f.Decl, f.Type))
	}
	insts, err := in.file.slice(b, l, 1)
	if err != nil {
		return nil, in.fail(name, err)
	}
	if len(insts) == 0 {
		return nil, in.fail(name, fmt.Errorf("%w: empty %s record", ErrTypeMismatch, l.Name))
	}
	return insts[0], nil
}

// Iter returns the records of the array a pointer field refers to. A null
// pointer yields an empty sequence.
func (in *Instance) Iter(name string) (iter.Seq[*Instance], error) {
	f, b, l, err := in.target(name)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return func(func(*Instance) bool) {}, nil
	}
	if l == nil {
		return nil, in.fail(name, fmt.Errorf("%w: %s points to %s", ErrTypeMismatch, f.Decl, f.Type))
	}

	count := b.Count
	if l.Size > 0 && b.SDNA != l.Index {
		// Records written under another struct id: size the array by bytes.
		count = len(b.Data) / l.Size
	}
	insts, err := in.file.slice(b, l, count)
	if err != nil {
		return nil, in.fail(name, err)
	}
	return func(yield func(*Instance) bool) {
		for _, x := range insts {
			if !yield(x) {
				return
			}
		}
	}, nil
}

// Bytes returns the bytes of a field: the array itself for an inline
// field or the whole target block for a pointer. The slice aliases the
// file buffer and must not be modified.
func (in *Instance) Bytes(name string) ([]byte, error) {
	f, err := in.field(name)
	if err != nil {
		return nil, err
	}
	if !f.Pointer {
		return in.raw(f), nil
	}
	if f.Count != 1 {
		return nil, in.fail(name, fmt.Errorf("%w: %s is a pointer array", ErrTypeMismatch, f.Decl))
	}

	addr := in.pointerAt(in.raw(f))
	if addr == 0 {
		return nil, in.fail(name, ErrNullPointer)
	}
	b, ok := in.file.BlockAt(addr)
	if !ok {
		return nil, in.fail(name, fmt.Errorf("%w: 0x%x", ErrDanglingPointer, addr))
	}
	return b.Data, nil
}

// String returns a NUL-terminated char array field.
func (in *Instance) String(name string) (string, error) {
	f, err := in.field(name)
	if err != nil {
		return "", err
	}
	if f.Pointer || f.Type != "char" || f.Count < 2 {
		return "", in.fail(name, fmt.Errorf("%w: %s %s is not a char array", ErrTypeMismatch, f.Type, f.Decl))
	}
	b := in.raw(f)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

var (
	int8Types  = map[string]bool{"char": true, "uchar": true, "int8_t": true, "uint8_t": true}
	int32Types = map[string]bool{"int": true, "uint": true, "int32_t": true, "uint32_t": true}
)

// I8 returns a one-byte integer field.
func (in *Instance) I8(name string) (int8, error) {
	f, err := in.field(name)
	if err != nil {
		return 0, err
	}
	if f.Pointer || f.Count != 1 || !int8Types[f.Type] {
		return 0, in.fail(name, fmt.Errorf("%w: %s %s is not a byte", ErrTypeMismatch, f.Type, f.Decl))
	}
	return int8(in.data[f.Offset]), nil
}

// I32 returns a four-byte integer field.
func (in *Instance) I32(name string) (int32, error) {
	f, err := in.field(name)
	if err != nil {
		return 0, err
	}
	if f.Pointer || f.Count != 1 || !int32Types[f.Type] {
		return 0, in.fail(name, fmt.Errorf("%w: %s %s is not an int", ErrTypeMismatch, f.Type, f.Decl))
	}
	return int32(in.file.Header.Order.Uint32(in.raw(f))), nil
}

// I32s returns a four-byte integer array field.
func (in *Instance) I32s(name string) ([]int32, error) {
	f, err := in.field(name)
	if err != nil {
		return nil, err
	}
	if f.Pointer || !int32Types[f.Type] {
		return nil, in.fail(name, fmt.Errorf("%w: %s %s is not an int array", ErrTypeMismatch, f.Type, f.Decl))
	}
	raw := in.raw(f)
	out := make([]int32, f.Count)
	for i := range out {
		out[i] = int32(in.file.Header.Order.Uint32(raw[i*4:]))
	}
	return out, nil
}

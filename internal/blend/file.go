// Package blend reads Blender scene files.
//
// A .blend file is a header followed by a flat list of blocks. Each block
// holds one or more records of a struct described by the file's own DNA
// catalogue, so records are decoded lazily by field name rather than by a
// fixed schema. Gzip and Zstandard compressed files are accepted.
package blend

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Sentinel errors.
var (
	ErrNotBlend           = errors.New("blend: not a Blender file")
	ErrUnsupportedVersion = errors.New("blend: unsupported file header")
	ErrTruncated          = errors.New("blend: truncated file")
	ErrNoDNA              = errors.New("blend: file has no DNA1 block")
	ErrCorruptDNA         = errors.New("blend: corrupt DNA catalogue")
	ErrFieldNotFound      = errors.New("field not found")
	ErrTypeMismatch       = errors.New("field type mismatch")
	ErrNullPointer        = errors.New("null pointer")
	ErrDanglingPointer    = errors.New("pointer to unknown block")
)

// FieldError records a failed field access.
type FieldError struct {
	Struct string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return "blend: " + e.Struct + "." + e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

const (
	headerSize = 12
	magic      = "BLENDER"

	codeDNA  = "DNA1"
	codeEnd  = "ENDB"
	codeData = "DATA"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Header is the 12-byte file header.
type Header struct {
	PointerSize int
	Order       binary.ByteOrder
	Version     string // three digits, e.g. "293"
}

// String returns a human-readable summary.
func (h Header) String() string {
	endian := "little"
	if h.Order == binary.BigEndian {
		endian = "big"
	}
	return fmt.Sprintf("v%s %d-bit %s-endian", h.Version, h.PointerSize*8, endian)
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < headerSize || string(data[:7]) != magic {
		return Header{}, ErrNotBlend
	}

	var h Header
	switch data[7] {
	case '_':
		h.PointerSize = 4
	case '-':
		h.PointerSize = 8
	default:
		return Header{}, fmt.Errorf("%w: pointer size marker %q", ErrUnsupportedVersion, data[7])
	}
	switch data[8] {
	case 'v':
		h.Order = binary.LittleEndian
	case 'V':
		h.Order = binary.BigEndian
	default:
		return Header{}, fmt.Errorf("%w: endianness marker %q", ErrUnsupportedVersion, data[8])
	}
	h.Version = string(data[9:12])
	for _, c := range h.Version {
		if c < '0' || c > '9' {
			return Header{}, fmt.Errorf("%w: version %q", ErrUnsupportedVersion, h.Version)
		}
	}
	return h, nil
}

// Block is one file block. Data aliases the file buffer.
type Block struct {
	Code  string // NUL padding removed, e.g. "SC", "DATA"
	Addr  uint64 // address the block had when the file was saved
	SDNA  int    // struct index of the records
	Count int    // number of records
	Data  []byte
}

// IsRoot reports whether the block holds an ID record such as a scene or
// an object. Root blocks have two-letter codes.
func (b *Block) IsRoot() bool {
	return len(b.Code) == 2
}

// File is a parsed .blend file. It is safe for concurrent reads.
type File struct {
	Header Header
	DNA    *DNA
	Blocks []*Block

	byAddr  map[uint64]*Block
	layouts *layoutCache
}

// Open reads and parses the file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("blend: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a whole .blend stream, decompressing it when needed.
func Parse(r io.Reader) (*File, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

func readAll(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("blend: gzip: %w", err)
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("blend: gzip: %w", err)
		}
		return data, nil

	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("blend: zstd: %w", err)
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("blend: zstd: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("blend: read: %w", err)
	}
	return data, nil
}

// ParseBytes parses an uncompressed .blend image. Blocks alias data.
func ParseBytes(data []byte) (*File, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	f := &File{
		Header:  h,
		byAddr:  make(map[uint64]*Block),
		layouts: newLayoutCache(defaultLayoutLimit),
	}

	order := h.Order
	bheadSize := 16 + h.PointerSize
	off := headerSize
	ended := false

	for off+bheadSize <= len(data) {
		head := data[off : off+bheadSize]
		code := strings.TrimRight(string(head[:4]), "\x00")
		length := int32(order.Uint32(head[4:8]))

		var addr uint64
		if h.PointerSize == 4 {
			addr = uint64(order.Uint32(head[8:12]))
		} else {
			addr = order.Uint64(head[8:16])
		}
		rest := head[8+h.PointerSize:]
		sdna := int(int32(order.Uint32(rest[0:4])))
		count := int(int32(order.Uint32(rest[4:8])))
		off += bheadSize

		if code == codeEnd {
			ended = true
			break
		}
		if length < 0 || count < 0 || off+int(length) > len(data) {
			return nil, fmt.Errorf("%w: block %q at offset %d", ErrTruncated, code, off-bheadSize)
		}

		b := &Block{
			Code:  code,
			Addr:  addr,
			SDNA:  sdna,
			Count: count,
			Data:  data[off : off+int(length) : off+int(length)],
		}
		off += int(length)

		if code == codeDNA {
			if f.DNA, err = parseDNA(b.Data, order); err != nil {
				return nil, err
			}
			continue
		}
		f.Blocks = append(f.Blocks, b)
		if addr != 0 {
			f.byAddr[addr] = b
		}
	}

	if !ended {
		return nil, fmt.Errorf("%w: missing %s block", ErrTruncated, codeEnd)
	}
	if f.DNA == nil {
		return nil, ErrNoDNA
	}
	return f, nil
}

// Layout returns the resolved layout of struct index i.
func (f *File) Layout(i int) (*Layout, error) {
	return f.layouts.getOrBuild(i, func(i int) (*Layout, error) {
		return f.DNA.buildLayout(i, f.Header.PointerSize)
	})
}

// LayoutByName returns the resolved layout of the named struct.
func (f *File) LayoutByName(name string) (*Layout, error) {
	i, ok := f.DNA.StructIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: no struct %q", ErrCorruptDNA, name)
	}
	return f.Layout(i)
}

// CacheStats reports layout cache usage.
func (f *File) CacheStats() CacheStats {
	return f.layouts.stats()
}

// BlockAt returns the block saved at addr.
func (f *File) BlockAt(addr uint64) (*Block, bool) {
	b, ok := f.byAddr[addr]
	return b, ok
}

// instances returns the records stored in b.
func (f *File) instances(b *Block) ([]*Instance, error) {
	l, err := f.Layout(b.SDNA)
	if err != nil {
		return nil, err
	}
	return f.slice(b, l, b.Count)
}

func (f *File) slice(b *Block, l *Layout, count int) ([]*Instance, error) {
	if l.Size == 0 || count == 0 {
		return nil, nil
	}
	if count*l.Size > len(b.Data) {
		return nil, fmt.Errorf("%w: block %q holds %d bytes, %d x %s needs %d",
			ErrTruncated, b.Code, len(b.Data), count, l.Name, count*l.Size)
	}
	out := make([]*Instance, count)
	for i := range out {
		out[i] = &Instance{
			file:   f,
			layout: l,
			data:   b.Data[i*l.Size : (i+1)*l.Size],
		}
	}
	return out, nil
}

// Roots returns the first record of every root (ID) block, in file order.
func (f *File) Roots() ([]*Instance, error) {
	var out []*Instance
	for _, b := range f.Blocks {
		if !b.IsRoot() {
			continue
		}
		insts, err := f.instances(b)
		if err != nil {
			return nil, err
		}
		if len(insts) > 0 {
			out = append(out, insts[0])
		}
	}
	return out, nil
}

// ByCode returns the root records whose block code matches, e.g. "OB".
func (f *File) ByCode(code string) ([]*Instance, error) {
	var out []*Instance
	for _, b := range f.Blocks {
		if !b.IsRoot() || b.Code != code {
			continue
		}
		insts, err := f.instances(b)
		if err != nil {
			return nil, err
		}
		if len(insts) > 0 {
			out = append(out, insts[0])
		}
	}
	return out, nil
}

// ByType returns the root records whose struct type is name, e.g. "Scene".
func (f *File) ByType(name string) ([]*Instance, error) {
	idx, ok := f.DNA.StructIndex(name)
	if !ok {
		return nil, nil
	}
	var out []*Instance
	for _, b := range f.Blocks {
		if !b.IsRoot() || b.SDNA != idx {
			continue
		}
		insts, err := f.instances(b)
		if err != nil {
			return nil, err
		}
		if len(insts) > 0 {
			out = append(out, insts[0])
		}
	}
	return out, nil
}

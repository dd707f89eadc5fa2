package blend

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DNA is the struct catalogue stored in a file's DNA1 block.
//
// Every record in the file is described by one of its structs, so field
// names, types and offsets are discovered at read time.
type DNA struct {
	Names    []string
	Types    []string
	TypeLens []int
	Structs  []StructDef

	byType map[int]int    // type index -> struct index
	byName map[string]int // struct name -> struct index
}

// StructDef is one raw struct entry of the catalogue.
type StructDef struct {
	Type   int      // index into DNA.Types
	Fields [][2]int // (type index, name index) pairs
}

// StructIndex returns the struct index for a type name.
func (d *DNA) StructIndex(name string) (int, bool) {
	i, ok := d.byName[name]
	return i, ok
}

// structForType returns the struct index describing type index t, or -1.
func (d *DNA) structForType(t int) int {
	if i, ok := d.byType[t]; ok {
		return i
	}
	return -1
}

// StructName returns the type name of struct index i.
func (d *DNA) StructName(i int) string {
	if i < 0 || i >= len(d.Structs) {
		return ""
	}
	return d.Types[d.Structs[i].Type]
}

// dnaReader walks the DNA1 payload.
type dnaReader struct {
	data  []byte
	off   int
	order binary.ByteOrder
}

func (r *dnaReader) tag(want string) error {
	r.align()
	if r.off+4 > len(r.data) || string(r.data[r.off:r.off+4]) != want {
		return fmt.Errorf("%w: missing %s section", ErrCorruptDNA, want)
	}
	r.off += 4
	return nil
}

func (r *dnaReader) align() {
	r.off = (r.off + 3) &^ 3
}

func (r *dnaReader) int32() (int, error) {
	if r.off+4 > len(r.data) {
		return 0, fmt.Errorf("%w: truncated", ErrCorruptDNA)
	}
	v := int32(r.order.Uint32(r.data[r.off:]))
	r.off += 4
	if v < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrCorruptDNA, v)
	}
	return int(v), nil
}

func (r *dnaReader) int16() (int, error) {
	if r.off+2 > len(r.data) {
		return 0, fmt.Errorf("%w: truncated", ErrCorruptDNA)
	}
	v := int(r.order.Uint16(r.data[r.off:]))
	r.off += 2
	return v, nil
}

func (r *dnaReader) strings(n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		end := bytes.IndexByte(r.data[r.off:], 0)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated name", ErrCorruptDNA)
		}
		out[i] = string(r.data[r.off : r.off+end])
		r.off += end + 1
	}
	return out, nil
}

// parseDNA decodes the SDNA, NAME, TYPE, TLEN and STRC sections.
func parseDNA(data []byte, order binary.ByteOrder) (*DNA, error) {
	r := &dnaReader{data: data, order: order}
	dna := &DNA{}

	if err := r.tag("SDNA"); err != nil {
		return nil, err
	}

	if err := r.tag("NAME"); err != nil {
		return nil, err
	}
	n, err := r.int32()
	if err != nil {
		return nil, err
	}
	if dna.Names, err = r.strings(n); err != nil {
		return nil, err
	}

	if err := r.tag("TYPE"); err != nil {
		return nil, err
	}
	if n, err = r.int32(); err != nil {
		return nil, err
	}
	if dna.Types, err = r.strings(n); err != nil {
		return nil, err
	}

	if err := r.tag("TLEN"); err != nil {
		return nil, err
	}
	dna.TypeLens = make([]int, len(dna.Types))
	for i := range dna.TypeLens {
		if dna.TypeLens[i], err = r.int16(); err != nil {
			return nil, err
		}
	}

	if err := r.tag("STRC"); err != nil {
		return nil, err
	}
	if n, err = r.int32(); err != nil {
		return nil, err
	}
	dna.Structs = make([]StructDef, n)
	dna.byType = make(map[int]int, n)
	dna.byName = make(map[string]int, n)
	for i := range dna.Structs {
		t, err := r.int16()
		if err != nil {
			return nil, err
		}
		nf, err := r.int16()
		if err != nil {
			return nil, err
		}
		if t >= len(dna.Types) {
			return nil, fmt.Errorf("%w: struct %d has type %d of %d", ErrCorruptDNA, i, t, len(dna.Types))
		}
		def := StructDef{Type: t, Fields: make([][2]int, nf)}
		for j := range def.Fields {
			ft, err := r.int16()
			if err != nil {
				return nil, err
			}
			fn, err := r.int16()
			if err != nil {
				return nil, err
			}
			if ft >= len(dna.Types) || fn >= len(dna.Names) {
				return nil, fmt.Errorf("%w: struct %s field %d out of range", ErrCorruptDNA, dna.Types[t], j)
			}
			def.Fields[j] = [2]int{ft, fn}
		}
		dna.Structs[i] = def
		dna.byType[t] = i
		dna.byName[dna.Types[t]] = i
	}

	return dna, nil
}

// Field is one resolved member of a struct layout.
type Field struct {
	Name      string // bare identifier, e.g. "tex_size"
	Decl      string // declaration as stored, e.g. "tex_size[3]" or "*data"
	Type      string // element type name
	TypeIndex int
	Offset    int
	Size      int  // total bytes, all array elements included
	Count     int  // array element count, 1 for scalars
	Pointer   bool // element is a pointer (function pointers included)
	Struct    int  // struct index of an embedded struct element, -1 otherwise
}

// ElemSize returns the size of one array element.
func (f *Field) ElemSize() int {
	return f.Size / max(f.Count, 1)
}

// Layout is the resolved memory layout of one struct.
type Layout struct {
	Name   string
	Index  int
	Size   int
	Fields []Field

	byName map[string]int
}

// Field returns the named field.
func (l *Layout) Field(name string) (*Field, bool) {
	i, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return &l.Fields[i], true
}

// parseDecl splits a field declaration into identifier, pointer flag and
// array element count.
func parseDecl(decl string) (ident string, pointer bool, count int, err error) {
	rest := decl
	switch {
	case strings.HasPrefix(rest, "(*"):
		pointer = true
		rest = rest[2:]
	case strings.HasPrefix(rest, "*"):
		pointer = true
		rest = strings.TrimLeft(rest, "*")
	}

	end := strings.IndexAny(rest, "[)")
	if end < 0 {
		end = len(rest)
	}
	ident = rest[:end]
	if ident == "" {
		return "", false, 0, fmt.Errorf("%w: bad field name %q", ErrCorruptDNA, decl)
	}

	count = 1
	dims := rest[end:]
	for {
		open := strings.IndexByte(dims, '[')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(dims[open:], ']')
		if closing < 0 {
			return "", false, 0, fmt.Errorf("%w: bad array in %q", ErrCorruptDNA, decl)
		}
		n, convErr := strconv.Atoi(dims[open+1 : open+closing])
		if convErr != nil || n < 0 {
			return "", false, 0, fmt.Errorf("%w: bad array size in %q", ErrCorruptDNA, decl)
		}
		count *= n
		dims = dims[open+closing+1:]
	}
	return ident, pointer, count, nil
}

// buildLayout resolves field offsets for struct index i.
func (d *DNA) buildLayout(i, pointerSize int) (*Layout, error) {
	if i < 0 || i >= len(d.Structs) {
		return nil, fmt.Errorf("%w: struct index %d", ErrCorruptDNA, i)
	}
	def := d.Structs[i]
	l := &Layout{
		Name:   d.Types[def.Type],
		Index:  i,
		Size:   d.TypeLens[def.Type],
		Fields: make([]Field, len(def.Fields)),
		byName: make(map[string]int, len(def.Fields)),
	}

	offset := 0
	for j, pair := range def.Fields {
		decl := d.Names[pair[1]]
		ident, pointer, count, err := parseDecl(decl)
		if err != nil {
			return nil, err
		}

		elem := d.TypeLens[pair[0]]
		st := -1
		if pointer {
			elem = pointerSize
		} else {
			st = d.structForType(pair[0])
		}

		l.Fields[j] = Field{
			Name:      ident,
			Decl:      decl,
			Type:      d.Types[pair[0]],
			TypeIndex: pair[0],
			Offset:    offset,
			Size:      elem * count,
			Count:     count,
			Pointer:   pointer,
			Struct:    st,
		}
		if _, dup := l.byName[ident]; !dup {
			l.byName[ident] = j
		}
		offset += elem * count
	}

	if offset != l.Size {
		return nil, fmt.Errorf("%w: struct %s fields span %d bytes, type length is %d",
			ErrCorruptDNA, l.Name, offset, l.Size)
	}
	return l, nil
}

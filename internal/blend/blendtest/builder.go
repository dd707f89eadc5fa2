// Package blendtest builds small synthetic .blend files for tests.
package blendtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Field declares one struct member, e.g. {"int", "tex_size[3]"}.
type Field struct {
	Type string
	Name string
}

type member struct {
	decl    string
	ident   string
	typ     string
	offset  int
	size    int
	pointer bool
}

type structDef struct {
	name    string
	fields  []Field
	members []member
	size    int
}

type block struct {
	code  string
	addr  uint64
	sdna  int
	count int
	data  []byte
}

// Builder assembles a .blend file in memory.
type Builder struct {
	PointerSize int
	Order       binary.ByteOrder
	Version     string

	types    []string
	typeLens []int
	typeIdx  map[string]int
	structs  []*structDef
	byName   map[string]int

	blocks   []block
	nextAddr uint64
}

// New returns a builder for a 64-bit little-endian file with the
// primitive types registered.
func New() *Builder {
	b := &Builder{
		PointerSize: 8,
		Order:       binary.LittleEndian,
		Version:     "293",
		typeIdx:     make(map[string]int),
		byName:      make(map[string]int),
		nextAddr:    0x1000,
	}
	for _, p := range []struct {
		name string
		size int
	}{
		{"char", 1}, {"uchar", 1}, {"short", 2}, {"ushort", 2},
		{"int", 4}, {"uint", 4}, {"float", 4}, {"double", 8},
		{"int64_t", 8}, {"uint64_t", 8}, {"void", 0},
	} {
		b.Type(p.name, p.size)
	}
	return b
}

// Type registers a primitive or opaque type.
func (b *Builder) Type(name string, size int) {
	if _, ok := b.typeIdx[name]; ok {
		return
	}
	b.typeIdx[name] = len(b.types)
	b.types = append(b.types, name)
	b.typeLens = append(b.typeLens, size)
}

func parseDecl(decl string) (ident string, pointer bool, count int) {
	rest := decl
	if strings.HasPrefix(rest, "(*") {
		pointer, rest = true, rest[2:]
	} else if strings.HasPrefix(rest, "*") {
		pointer, rest = true, strings.TrimLeft(rest, "*")
	}
	end := strings.IndexAny(rest, "[)")
	if end < 0 {
		end = len(rest)
	}
	ident, count = rest[:end], 1
	for _, dim := range strings.Split(rest[end:], "[")[1:] {
		n, _ := strconv.Atoi(strings.TrimSuffix(strings.SplitN(dim, "]", 2)[0], "]"))
		count *= n
	}
	return ident, pointer, count
}

// Struct registers a struct. Field types must already be registered.
func (b *Builder) Struct(name string, fields ...Field) {
	def := &structDef{name: name, fields: fields}
	for _, f := range fields {
		ti, ok := b.typeIdx[f.Type]
		if !ok {
			panic(fmt.Sprintf("blendtest: struct %s: unknown type %s", name, f.Type))
		}
		ident, pointer, count := parseDecl(f.Name)
		elem := b.typeLens[ti]
		if pointer {
			elem = b.PointerSize
		}
		def.members = append(def.members, member{
			decl: f.Name, ident: ident, typ: f.Type,
			offset: def.size, size: elem * count, pointer: pointer,
		})
		def.size += elem * count
	}
	b.Type(name, def.size)
	b.byName[name] = len(b.structs)
	b.structs = append(b.structs, def)
}

// StructIndex returns the index of a registered struct.
func (b *Builder) StructIndex(name string) int {
	i, ok := b.byName[name]
	if !ok {
		panic("blendtest: unknown struct " + name)
	}
	return i
}

// Record is a mutable struct value being built.
type Record struct {
	b    *Builder
	def  *structDef
	Data []byte
}

// New allocates a zeroed record of the named struct.
func (b *Builder) New(name string) *Record {
	def := b.structs[b.StructIndex(name)]
	return &Record{b: b, def: def, Data: make([]byte, def.size)}
}

func (r *Record) member(ident string) member {
	for _, m := range r.def.members {
		if m.ident == ident {
			return m
		}
	}
	panic(fmt.Sprintf("blendtest: %s has no field %s", r.def.name, ident))
}

// Sub returns a record view of an embedded struct field.
func (r *Record) Sub(ident string) *Record {
	m := r.member(ident)
	def := r.b.structs[r.b.StructIndex(m.typ)]
	return &Record{b: r.b, def: def, Data: r.Data[m.offset : m.offset+m.size]}
}

// SetI8 sets a one-byte field.
func (r *Record) SetI8(ident string, v int8) *Record {
	r.Data[r.member(ident).offset] = byte(v)
	return r
}

// SetI16 sets a short field.
func (r *Record) SetI16(ident string, v int16) *Record {
	r.b.Order.PutUint16(r.Data[r.member(ident).offset:], uint16(v))
	return r
}

// SetI32 sets an int field, or consecutive elements of an int array.
func (r *Record) SetI32(ident string, vs ...int32) *Record {
	m := r.member(ident)
	for i, v := range vs {
		r.b.Order.PutUint32(r.Data[m.offset+i*4:], uint32(v))
	}
	return r
}

// SetString sets a char array field.
func (r *Record) SetString(ident, s string) *Record {
	m := r.member(ident)
	if len(s) >= m.size {
		panic(fmt.Sprintf("blendtest: %q does not fit %s", s, m.decl))
	}
	copy(r.Data[m.offset:m.offset+m.size], s)
	return r
}

// SetPtr sets a pointer field to addr.
func (r *Record) SetPtr(ident string, addr uint64) *Record {
	m := r.member(ident)
	if !m.pointer {
		panic("blendtest: " + m.decl + " is not a pointer")
	}
	if r.b.PointerSize == 4 {
		r.b.Order.PutUint32(r.Data[m.offset:], uint32(addr))
	} else {
		r.b.Order.PutUint64(r.Data[m.offset:], addr)
	}
	return r
}

func (b *Builder) addBlock(code string, sdna, count int, data []byte) uint64 {
	addr := b.nextAddr
	b.nextAddr += uint64(len(data)+15)&^15 + 16
	b.blocks = append(b.blocks, block{code: code, addr: addr, sdna: sdna, count: count, data: data})
	return addr
}

// Add appends a block holding the records and returns its address.
// All records must share one struct.
func (b *Builder) Add(code string, recs ...*Record) uint64 {
	if len(recs) == 0 {
		panic("blendtest: empty block")
	}
	var data []byte
	for _, r := range recs {
		data = append(data, r.Data...)
	}
	return b.addBlock(code, b.StructIndex(recs[0].def.name), len(recs), data)
}

// AddRaw appends a DATA block of untyped bytes and returns its address.
func (b *Builder) AddRaw(data []byte) uint64 {
	return b.addBlock("DATA", 0, 1, data)
}

func (b *Builder) dna() []byte {
	var names []string
	nameIdx := map[string]int{}
	for _, s := range b.structs {
		for _, f := range s.fields {
			if _, ok := nameIdx[f.Name]; !ok {
				nameIdx[f.Name] = len(names)
				names = append(names, f.Name)
			}
		}
	}

	var buf bytes.Buffer
	align := func() {
		for buf.Len()%4 != 0 {
			buf.WriteByte(0)
		}
	}
	u32 := func(v int) { _ = binary.Write(&buf, b.Order, uint32(v)) }
	u16 := func(v int) { _ = binary.Write(&buf, b.Order, uint16(v)) }

	buf.WriteString("SDNA")
	buf.WriteString("NAME")
	u32(len(names))
	for _, n := range names {
		buf.WriteString(n)
		buf.WriteByte(0)
	}
	align()
	buf.WriteString("TYPE")
	u32(len(b.types))
	for _, t := range b.types {
		buf.WriteString(t)
		buf.WriteByte(0)
	}
	align()
	buf.WriteString("TLEN")
	for _, l := range b.typeLens {
		u16(l)
	}
	align()
	buf.WriteString("STRC")
	u32(len(b.structs))
	for _, s := range b.structs {
		u16(b.typeIdx[s.name])
		u16(len(s.fields))
		for _, f := range s.fields {
			u16(b.typeIdx[f.Type])
			u16(nameIdx[f.Name])
		}
	}
	return buf.Bytes()
}

func (b *Builder) writeBlock(buf *bytes.Buffer, code string, addr uint64, sdna, count int, data []byte) {
	var c [4]byte
	copy(c[:], code)
	buf.Write(c[:])
	_ = binary.Write(buf, b.Order, int32(len(data)))
	if b.PointerSize == 4 {
		_ = binary.Write(buf, b.Order, uint32(addr))
	} else {
		_ = binary.Write(buf, b.Order, addr)
	}
	_ = binary.Write(buf, b.Order, int32(sdna))
	_ = binary.Write(buf, b.Order, int32(count))
	buf.Write(data)
}

// Bytes encodes the file: header, blocks, DNA1, ENDB.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("BLENDER")
	if b.PointerSize == 4 {
		buf.WriteByte('_')
	} else {
		buf.WriteByte('-')
	}
	if b.Order == binary.BigEndian {
		buf.WriteByte('V')
	} else {
		buf.WriteByte('v')
	}
	buf.WriteString(b.Version)

	for _, bl := range b.blocks {
		b.writeBlock(&buf, bl.code, bl.addr, bl.sdna, bl.count, bl.data)
	}
	b.writeBlock(&buf, "DNA1", 0, 0, 1, b.dna())
	b.writeBlock(&buf, "ENDB", 0, 0, 0, nil)
	return buf.Bytes()
}

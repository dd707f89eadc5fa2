package blend

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
)

// maxDumpElems caps how many array elements Dump prints per field.
const maxDumpElems = 16

// maxDumpDepth caps how deep Dump descends into embedded structs.
const maxDumpDepth = 6

// Dump writes a readable listing of every root record and its fields.
func (f *File) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# blend %s, %d blocks, %d structs\n", f.Header, len(f.Blocks), len(f.DNA.Structs))
	for _, b := range f.Blocks {
		if !b.IsRoot() {
			continue
		}
		insts, err := f.instances(b)
		if err != nil {
			return err
		}
		for _, in := range insts {
			fmt.Fprintf(bw, "\n%s %s @0x%x\n", b.Code, in.TypeName(), b.Addr)
			if err := in.dump(bw, 1); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

func (in *Instance) dump(w *bufio.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	for i := range in.layout.Fields {
		fd := &in.layout.Fields[i]
		raw := in.raw(fd)

		switch {
		case fd.Pointer:
			fmt.Fprintf(w, "%s%s %s = %s\n", indent, fd.Type, fd.Decl, in.formatPointers(raw, fd.Count))

		case fd.Struct >= 0 && fd.Count == 1:
			fmt.Fprintf(w, "%s%s %s\n", indent, fd.Type, fd.Decl)
			if depth >= maxDumpDepth {
				fmt.Fprintf(w, "%s  ...\n", indent)
				continue
			}
			sub, err := in.Get(fd.Name)
			if err != nil {
				return err
			}
			if err := sub.dump(w, depth+1); err != nil {
				return err
			}

		case fd.Struct >= 0:
			fmt.Fprintf(w, "%s%s %s = [%d records]\n", indent, fd.Type, fd.Decl, fd.Count)

		case fd.Type == "char" && fd.Count > 1:
			s := raw
			if n := strings.IndexByte(string(raw), 0); n >= 0 {
				s = raw[:n]
			}
			fmt.Fprintf(w, "%s%s %s = %q\n", indent, fd.Type, fd.Decl, s)

		default:
			fmt.Fprintf(w, "%s%s %s = %s\n", indent, fd.Type, fd.Decl, in.formatScalars(fd, raw))
		}
	}
	return nil
}

func (in *Instance) formatPointers(raw []byte, count int) string {
	ps := in.file.Header.PointerSize
	parts := make([]string, 0, min(count, maxDumpElems))
	for i := 0; i < count && i < maxDumpElems; i++ {
		parts = append(parts, fmt.Sprintf("0x%x", in.pointerAt(raw[i*ps:])))
	}
	return joinElems(parts, count)
}

func (in *Instance) formatScalars(fd *Field, raw []byte) string {
	size := fd.ElemSize()
	if size == 0 {
		return "<opaque>"
	}
	parts := make([]string, 0, min(fd.Count, maxDumpElems))
	for i := 0; i < fd.Count && i < maxDumpElems; i++ {
		parts = append(parts, in.formatScalar(fd.Type, raw[i*size:(i+1)*size]))
	}
	return joinElems(parts, fd.Count)
}

func (in *Instance) formatScalar(typ string, b []byte) string {
	order := in.file.Header.Order
	switch typ {
	case "char", "int8_t":
		return fmt.Sprint(int8(b[0]))
	case "uchar", "uint8_t":
		return fmt.Sprint(b[0])
	case "short", "int16_t":
		return fmt.Sprint(int16(order.Uint16(b)))
	case "ushort", "uint16_t":
		return fmt.Sprint(order.Uint16(b))
	case "int", "int32_t":
		return fmt.Sprint(int32(order.Uint32(b)))
	case "uint", "uint32_t":
		return fmt.Sprint(order.Uint32(b))
	case "float":
		return fmt.Sprint(math.Float32frombits(order.Uint32(b)))
	case "double":
		return fmt.Sprint(math.Float64frombits(order.Uint64(b)))
	case "int64_t", "long":
		if len(b) == 8 {
			return fmt.Sprint(int64(order.Uint64(b)))
		}
	case "uint64_t", "ulong":
		if len(b) == 8 {
			return fmt.Sprint(order.Uint64(b))
		}
	}
	return fmt.Sprintf("<%d bytes>", len(b))
}

func joinElems(parts []string, count int) string {
	if count == 1 && len(parts) == 1 {
		return parts[0]
	}
	s := "[" + strings.Join(parts, " ")
	if count > len(parts) {
		s += fmt.Sprintf(" ... %d more", count-len(parts))
	}
	return s + "]"
}

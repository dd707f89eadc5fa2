package lightcache

import (
	"io"
	"iter"

	"github.com/gogpu/lightcache/internal/blend"
)

// Record is one struct record of a scene file, read by field name.
//
// Accessors fail when the field is absent or has another type. Get fails
// with ErrNullRecord for a null reference; Iter yields nothing for one.
type Record interface {
	TypeName() string
	Get(field string) (Record, error)
	String(field string) (string, error)
	I8(field string) (int8, error)
	I32(field string) (int32, error)
	I32s(field string) ([]int32, error)
	Bytes(field string) ([]byte, error)
	Iter(field string) (iter.Seq[Record], error)
}

// RecordStore finds root records of a scene file.
type RecordStore interface {
	// ByCode returns root records by two-letter code, e.g. "OB".
	ByCode(code string) ([]Record, error)
	// ByType returns root records by struct name, e.g. "Scene".
	ByType(name string) ([]Record, error)
}

// OpenStore opens a .blend file, plain or compressed.
func OpenStore(path string) (RecordStore, error) {
	f, err := blend.Open(path)
	if err != nil {
		return nil, err
	}
	return blendStore{f}, nil
}

// ParseStore reads a .blend stream, plain or compressed.
func ParseStore(r io.Reader) (RecordStore, error) {
	f, err := blend.Parse(r)
	if err != nil {
		return nil, err
	}
	return blendStore{f}, nil
}

// blendStore adapts a parsed .blend file to RecordStore.
type blendStore struct {
	f *blend.File
}

func (s blendStore) ByCode(code string) ([]Record, error) {
	insts, err := s.f.ByCode(code)
	return wrapAll(insts), err
}

func (s blendStore) ByType(name string) ([]Record, error) {
	insts, err := s.f.ByType(name)
	return wrapAll(insts), err
}

func wrapAll(insts []*blend.Instance) []Record {
	if len(insts) == 0 {
		return nil
	}
	out := make([]Record, len(insts))
	for i, in := range insts {
		out[i] = blendRecord{in}
	}
	return out
}

// blendRecord adapts a blend.Instance to Record.
type blendRecord struct {
	*blend.Instance
}

func (r blendRecord) Get(field string) (Record, error) {
	in, err := r.Instance.Get(field)
	if err != nil {
		return nil, err
	}
	return blendRecord{in}, nil
}

func (r blendRecord) Iter(field string) (iter.Seq[Record], error) {
	seq, err := r.Instance.Iter(field)
	if err != nil {
		return nil, err
	}
	return func(yield func(Record) bool) {
		for in := range seq {
			if !yield(blendRecord{in}) {
				return
			}
		}
	}, nil
}

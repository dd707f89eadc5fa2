package lightcache

import (
	"errors"
	"fmt"
	"iter"
	"sort"
)

var errNoField = errors.New("no such field")

// fakeRecord is an in-memory Record. A nil *fakeRecord field value is a
// null reference.
type fakeRecord struct {
	typ    string
	fields map[string]any
}

func rec(typ string, kv ...any) *fakeRecord {
	r := &fakeRecord{typ: typ, fields: map[string]any{}}
	for i := 0; i < len(kv); i += 2 {
		r.fields[kv[i].(string)] = kv[i+1]
	}
	return r
}

func (r *fakeRecord) TypeName() string { return r.typ }

func (r *fakeRecord) value(field string) (any, error) {
	v, ok := r.fields[field]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", r.typ, field, errNoField)
	}
	return v, nil
}

func lookup[T any](r *fakeRecord, field string) (T, error) {
	var zero T
	v, err := r.value(field)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s: holds %T", r.typ, field, v)
	}
	return t, nil
}

func (r *fakeRecord) Get(field string) (Record, error) {
	sub, err := lookup[*fakeRecord](r, field)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%s.%s: %w", r.typ, field, ErrNullRecord)
	}
	return sub, nil
}

func (r *fakeRecord) String(field string) (string, error) { return lookup[string](r, field) }
func (r *fakeRecord) I8(field string) (int8, error)       { return lookup[int8](r, field) }
func (r *fakeRecord) I32(field string) (int32, error)     { return lookup[int32](r, field) }
func (r *fakeRecord) I32s(field string) ([]int32, error)  { return lookup[[]int32](r, field) }
func (r *fakeRecord) Bytes(field string) ([]byte, error)  { return lookup[[]byte](r, field) }

func (r *fakeRecord) Iter(field string) (iter.Seq[Record], error) {
	list, err := lookup[[]*fakeRecord](r, field)
	if err != nil {
		return nil, err
	}
	return func(yield func(Record) bool) {
		for _, x := range list {
			if !yield(x) {
				return
			}
		}
	}, nil
}

// fakeStore serves root records by code and type.
type fakeStore struct {
	roots []struct {
		code string
		rec  *fakeRecord
	}
}

func (s *fakeStore) add(code string, r *fakeRecord) *fakeStore {
	s.roots = append(s.roots, struct {
		code string
		rec  *fakeRecord
	}{code, r})
	return s
}

func (s *fakeStore) ByCode(code string) ([]Record, error) {
	var out []Record
	for _, x := range s.roots {
		if x.code == code {
			out = append(out, x.rec)
		}
	}
	return out, nil
}

func (s *fakeStore) ByType(name string) ([]Record, error) {
	var out []Record
	for _, x := range s.roots {
		if x.rec.typ == name {
			out = append(out, x.rec)
		}
	}
	return out, nil
}

// memWriter keeps saved containers in memory.
type memWriter struct {
	created []ContainerShape
	saved   map[string]*memContainer
}

func newMemWriter() *memWriter {
	return &memWriter{saved: map[string]*memContainer{}}
}

func (w *memWriter) Ext() string { return ".mem" }

func (w *memWriter) Create(shape ContainerShape) (Container, error) {
	w.created = append(w.created, shape)
	return &memContainer{w: w, shape: shape, payload: make([]byte, shape.PayloadSize())}, nil
}

func (w *memWriter) paths() []string {
	out := make([]string, 0, len(w.saved))
	for p := range w.saved {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type memContainer struct {
	w       *memWriter
	shape   ContainerShape
	payload []byte
}

func (c *memContainer) Payload() []byte { return c.payload }

func (c *memContainer) Save(path string) error {
	c.w.saved[path] = c
	return nil
}

// Record builders mirroring the light cache structs.

func texture(size [3]int32, dataType, components int8, data []byte) *fakeRecord {
	return rec("LightCacheTexture",
		"tex_size", size[:],
		"data_type", dataType,
		"components", components,
		"data", data,
	)
}

func lightCache(flags CacheFlags, cube, grid *fakeRecord, mips ...*fakeRecord) *fakeRecord {
	if cube == nil {
		cube = texture([3]int32{}, 0, 0, nil)
	}
	if grid == nil {
		grid = texture([3]int32{}, 0, 0, nil)
	}
	if mips == nil {
		mips = []*fakeRecord{}
	}
	return rec("LightCache",
		"flag", int32(flags),
		"cube_tx", cube,
		"grid_tx", grid,
		"cube_mips", mips,
	)
}

func scene(name string, lc *fakeRecord) *fakeRecord {
	return rec("Scene",
		"id", rec("ID", "name", "SC"+name),
		"eevee", rec("SceneEEVEE",
			"gi_diffuse_bounces", int32(3),
			"gi_cubemap_resolution", int32(512),
			"gi_visibility_resolution", int32(16),
			"light_cache_data", lc,
		),
	)
}

func probeObject(name string, typ int8, res [3]int32) *fakeRecord {
	return rec("Object",
		"id", rec("ID", "name", "OB"+name),
		"data", rec("LightProbe",
			"type", typ,
			"grid_resolution_x", res[0],
			"grid_resolution_y", res[1],
			"grid_resolution_z", res[2],
		),
	)
}

// filled returns n bytes with a position-dependent pattern.
func filled(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

package lightcache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/lightcache/internal/image"
)

// Extractor writes the light caches of a record store as texture
// containers. Scenes are processed one at a time, in store order.
type Extractor struct {
	store RecordStore
	opts  options
}

// New creates an Extractor over store.
func New(store RecordStore, opts ...Option) *Extractor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Extractor{store: store, opts: o}
}

func (e *Extractor) log() *slog.Logger {
	l := e.opts.logger
	if l == nil {
		l = Logger()
	}
	if e.opts.runID != "" {
		l = l.With("run", e.opts.runID)
	}
	return l
}

func (e *Extractor) diag(format string, args ...any) {
	fmt.Fprintf(e.opts.diagnostics, format+"\n", args...)
}

// Run reports every light probe object, then extracts the light cache of
// every scene into outDir. The first error aborts the run; the returned
// report covers everything done before it.
func (e *Extractor) Run(outDir string) (*Report, error) {
	rep := &Report{RunID: e.opts.runID}

	probes, err := e.Probes()
	if err != nil {
		return rep, err
	}
	rep.Probes = probes

	scenes, err := e.store.ByType("Scene")
	if err != nil {
		return rep, fmt.Errorf("lightcache: list scenes: %w", err)
	}

	for _, sc := range scenes {
		info, lc, err := e.scene(sc)
		if err != nil {
			return rep, err
		}
		if err := e.makeSceneDir(outDir, info.Name); err != nil {
			rep.Scenes = append(rep.Scenes, info)
			return rep, err
		}

		if lc == nil {
			info.Skipped = "no light cache"
			rep.Scenes = append(rep.Scenes, info)
			e.log().Warn("scene has no light cache", "scene", info.Name)
			continue
		}

		textures, err := e.ExtractScene(info.Name, lc, outDir)
		rep.Textures = append(rep.Textures, textures...)
		if err != nil {
			rep.Scenes = append(rep.Scenes, info)
			return rep, err
		}
		if len(textures) == 0 {
			info.Skipped = "not baked"
		}
		rep.Scenes = append(rep.Scenes, info)
	}

	return rep, nil
}

// scene reads a scene's name and GI settings and returns its light cache,
// or nil when the scene holds none.
func (e *Extractor) scene(sc Record) (SceneInfo, Record, error) {
	name, err := e.idName(sc)
	if err != nil {
		return SceneInfo{}, nil, fmt.Errorf("lightcache: scene name: %w", err)
	}
	info := SceneInfo{Name: name}

	eevee, err := sc.Get("eevee")
	if err != nil {
		return info, nil, fmt.Errorf("lightcache: scene %q: %w", name, err)
	}
	for _, f := range []struct {
		field string
		dst   *int32
	}{
		{"gi_diffuse_bounces", &info.DiffuseBounces},
		{"gi_cubemap_resolution", &info.CubemapResolution},
		{"gi_visibility_resolution", &info.VisibilityResolution},
	} {
		if *f.dst, err = eevee.I32(f.field); err != nil {
			return info, nil, fmt.Errorf("lightcache: scene %q: %w", name, err)
		}
	}
	e.diag("%s: gi_diffuse_bounces: %d, gi_cubemap_resolution: %d, gi_visibility_resolution: %d",
		name, info.DiffuseBounces, info.CubemapResolution, info.VisibilityResolution)

	lc, err := eevee.Get("light_cache_data")
	if errors.Is(err, ErrNullRecord) {
		return info, nil, nil
	}
	if err != nil {
		return info, nil, fmt.Errorf("lightcache: scene %q: %w", name, err)
	}
	return info, lc, nil
}

// Probes lists the light probe objects of the store and prints each to
// the diagnostics stream.
func (e *Extractor) Probes() ([]Probe, error) {
	objects, err := e.store.ByCode("OB")
	if err != nil {
		return nil, fmt.Errorf("lightcache: list objects: %w", err)
	}

	var out []Probe
	for _, ob := range objects {
		data, err := ob.Get("data")
		if errors.Is(err, ErrNullRecord) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("lightcache: object data: %w", err)
		}
		if data.TypeName() != "LightProbe" {
			continue
		}

		name, err := e.idName(ob)
		if err != nil {
			return out, fmt.Errorf("lightcache: object name: %w", err)
		}
		p := Probe{Name: name}

		typ, err := data.I8("type")
		if err != nil {
			return out, fmt.Errorf("lightcache: probe %q: %w", name, err)
		}
		p.Type = ProbeType(typ)
		for i, axis := range []string{"grid_resolution_x", "grid_resolution_y", "grid_resolution_z"} {
			if p.Resolution[i], err = data.I32(axis); err != nil {
				return out, fmt.Errorf("lightcache: probe %q: %w", name, err)
			}
		}

		e.diag("%q type: %s resolution: %dx%dx%d",
			p.Name, p.Type, p.Resolution[0], p.Resolution[1], p.Resolution[2])
		out = append(out, p)
	}
	return out, nil
}

// ExtractScene writes the textures of one light cache to
// outDir/<scene>/cube_tx and outDir/<scene>/grid_tx, as its flags allow.
// The scene directory is created first. A cache that is not baked yields
// no textures and no error.
func (e *Extractor) ExtractScene(sceneName string, lightCache Record, outDir string) ([]Texture, error) {
	raw, err := lightCache.I32("flag")
	if err != nil {
		return nil, fmt.Errorf("lightcache: scene %q: %w", sceneName, err)
	}
	flags := CacheFlags(raw)
	log := e.log().With("scene", sceneName)

	if err := e.makeSceneDir(outDir, sceneName); err != nil {
		return nil, err
	}
	if !flags.Has(FlagBaked) {
		log.Info("light cache not baked, skipping", "flags", flags)
		return nil, nil
	}

	dir := filepath.Join(outDir, e.dirName(sceneName))
	var out []Texture

	for _, kind := range []TextureKind{KindCube, KindGrid} {
		want := FlagCubeReady
		if kind == KindGrid {
			want = FlagGridReady
		}
		if !flags.Has(want) {
			continue
		}

		tex, err := e.extractTexture(lightCache, kind, dir)
		if err != nil {
			return out, fmt.Errorf("lightcache: scene %q: %s: %w", sceneName, kind, err)
		}
		tex.Scene = sceneName
		out = append(out, tex)

		log.Info("texture written", "kind", kind, "path", tex.Path, "bytes", tex.Bytes)
		e.diag("%s: %s %s -> %s", sceneName, kind, tex.Shape, tex.Path)
	}

	return out, nil
}

// extractTexture resolves, plans, assembles and saves one texture.
func (e *Extractor) extractTexture(lc Record, kind TextureKind, dir string) (Texture, error) {
	tx, err := lc.Get(string(kind))
	if err != nil {
		return Texture{}, err
	}

	size, err := tx.I32s("tex_size")
	if err != nil {
		return Texture{}, err
	}
	if len(size) != 3 {
		return Texture{}, fmt.Errorf("%w: tex_size has %d components", image.ErrInvalidDimensions, len(size))
	}
	dataType, err := tx.I8("data_type")
	if err != nil {
		return Texture{}, err
	}
	components, err := tx.I8("components")
	if err != nil {
		return Texture{}, err
	}

	format, err := image.Resolve(image.DataKind(dataType), int(components))
	if err != nil {
		return Texture{}, err
	}

	base, err := tx.Bytes("data")
	if err != nil {
		return Texture{}, err
	}
	sources := [][]byte{base}

	cube := kind == KindCube
	if cube {
		mips, err := mipPayloads(lc)
		if err != nil {
			return Texture{}, err
		}
		sources = append(sources, mips...)
	}

	shape, err := image.Plan(image.Size{int(size[0]), int(size[1]), int(size[2])}, len(sources)-1, cube, format)
	if err != nil {
		return Texture{}, err
	}
	e.log().Debug("planned container",
		"kind", kind, "shape", shape.String(), "format", format.String(), "payload", shape.PayloadSize())

	c, err := e.opts.writer.Create(shape)
	if err != nil {
		return Texture{}, err
	}
	if err := image.Assemble(c.Payload(), sources...); err != nil {
		return Texture{}, err
	}

	path := filepath.Join(dir, string(kind)+e.opts.writer.Ext())
	if err := c.Save(path); err != nil {
		return Texture{}, err
	}

	return Texture{
		Kind:  kind,
		Path:  path,
		Shape: shape,
		Bytes: shape.PayloadSize(),
	}, nil
}

// makeSceneDir creates the output directory of a scene if it is absent.
func (e *Extractor) makeSceneDir(outDir, scene string) error {
	dir := filepath.Join(outDir, e.dirName(scene))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("lightcache: scene %q: create output directory: %w", scene, err)
	}
	return nil
}

// mipPayloads returns the texel data of every cube mip level below the
// base, in ascending level order.
func mipPayloads(lc Record) ([][]byte, error) {
	seq, err := lc.Iter("cube_mips")
	if err != nil {
		return nil, err
	}

	var out [][]byte
	var iterErr error
	for m := range seq {
		data, err := m.Bytes("data")
		if err != nil {
			iterErr = fmt.Errorf("mip %d: %w", len(out)+1, err)
			break
		}
		out = append(out, data)
	}
	return out, iterErr
}

// idName returns the name of a record's embedded ID, with the leading
// two-letter type code unless stripping is enabled.
func (e *Extractor) idName(r Record) (string, error) {
	id, err := r.Get("id")
	if err != nil {
		return "", err
	}
	name, err := id.String("name")
	if err != nil {
		return "", err
	}
	if e.opts.stripCode && len(name) >= 2 {
		name = name[2:]
	}
	return name, nil
}


package blendtest

// RegisterEEVEE registers a reduced version of the Blender structs that
// hold the EEVEE light cache: ID, Object, LightProbe, Scene, SceneEEVEE,
// LightCache and LightCacheTexture.
func (b *Builder) RegisterEEVEE() {
	b.Type("GPUTexture", 0)
	b.Struct("ID",
		Field{"void", "*next"},
		Field{"void", "*prev"},
		Field{"char", "name[66]"},
		Field{"short", "flag"},
	)
	b.Struct("Object",
		Field{"ID", "id"},
		Field{"short", "type"},
		Field{"short", "_pad0[3]"},
		Field{"void", "*data"},
	)
	b.Struct("LightProbe",
		Field{"ID", "id"},
		Field{"char", "type"},
		Field{"char", "flag"},
		Field{"char", "attenuation_type"},
		Field{"char", "parallax_type"},
		Field{"int", "grid_resolution_x"},
		Field{"int", "grid_resolution_y"},
		Field{"int", "grid_resolution_z"},
		Field{"float", "distinf"},
	)
	b.Struct("LightCacheTexture",
		Field{"GPUTexture", "*tex"},
		Field{"char", "*data"},
		Field{"int", "tex_size[3]"},
		Field{"char", "data_type"},
		Field{"char", "components"},
		Field{"char", "_pad[2]"},
	)
	b.Struct("LightCache",
		Field{"int", "flag"},
		Field{"int", "version"},
		Field{"int", "type"},
		Field{"int", "cube_len"},
		Field{"int", "grid_len"},
		Field{"int", "mips_len"},
		Field{"int", "vis_res"},
		Field{"int", "ref_res"},
		Field{"char", "_pad[4][2]"},
		Field{"LightCacheTexture", "grid_tx"},
		Field{"LightCacheTexture", "cube_tx"},
		Field{"LightCacheTexture", "*cube_mips"},
	)
	b.Struct("SceneEEVEE",
		Field{"int", "flag"},
		Field{"int", "gi_diffuse_bounces"},
		Field{"int", "gi_cubemap_resolution"},
		Field{"int", "gi_visibility_resolution"},
		Field{"float", "gi_irradiance_smoothing"},
		Field{"int", "_pad0"},
		Field{"LightCache", "*light_cache_data"},
	)
	b.Struct("Scene",
		Field{"ID", "id"},
		Field{"void", "*camera"},
		Field{"SceneEEVEE", "eevee"},
	)
}

// Texture describes one LightCacheTexture record.
type Texture struct {
	Size       [3]int32
	DataType   int8
	Components int8
	Data       []byte // nil leaves the data pointer null
}

// Cache describes a baked LightCache.
type Cache struct {
	Flag int32
	Grid Texture
	Cube Texture
	Mips []Texture
}

// Scene describes one scene and its optional light cache.
type Scene struct {
	Name       string // without the "SC" prefix
	Bounces    int32
	CubemapRes int32
	VisRes     int32
	Cache      *Cache
}

// Probe describes one light probe object.
type Probe struct {
	Name string // without the "OB" prefix
	Type int8
	Grid [3]int32
}

func (b *Builder) fillTexture(r *Record, t Texture) {
	r.SetI32("tex_size", t.Size[:]...)
	r.SetI8("data_type", t.DataType)
	r.SetI8("components", t.Components)
	if t.Data != nil {
		r.SetPtr("data", b.AddRaw(t.Data))
	}
}

// AddScene appends a scene and its light cache blocks.
func (b *Builder) AddScene(s Scene) uint64 {
	sc := b.New("Scene")
	sc.Sub("id").SetString("name", "SC"+s.Name)
	ee := sc.Sub("eevee")
	ee.SetI32("gi_diffuse_bounces", s.Bounces)
	ee.SetI32("gi_cubemap_resolution", s.CubemapRes)
	ee.SetI32("gi_visibility_resolution", s.VisRes)

	if c := s.Cache; c != nil {
		lc := b.New("LightCache")
		lc.SetI32("flag", c.Flag)
		lc.SetI32("mips_len", int32(len(c.Mips)))
		b.fillTexture(lc.Sub("grid_tx"), c.Grid)
		b.fillTexture(lc.Sub("cube_tx"), c.Cube)
		if len(c.Mips) > 0 {
			mips := make([]*Record, len(c.Mips))
			for i, m := range c.Mips {
				mips[i] = b.New("LightCacheTexture")
				b.fillTexture(mips[i], m)
			}
			lc.SetPtr("cube_mips", b.Add("DATA", mips...))
		}
		ee.SetPtr("light_cache_data", b.Add("DATA", lc))
	}

	return b.Add("SC", sc)
}

// AddProbe appends a light probe object and its probe data.
func (b *Builder) AddProbe(p Probe) uint64 {
	lp := b.New("LightProbe")
	lp.Sub("id").SetString("name", "LP"+p.Name)
	lp.SetI8("type", p.Type)
	lp.SetI32("grid_resolution_x", p.Grid[0])
	lp.SetI32("grid_resolution_y", p.Grid[1])
	lp.SetI32("grid_resolution_z", p.Grid[2])
	data := b.Add("LP", lp)

	ob := b.New("Object")
	ob.Sub("id").SetString("name", "OB"+p.Name)
	ob.SetPtr("data", data)
	return b.Add("OB", ob)
}

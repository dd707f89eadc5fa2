package lightcache

import (
	"encoding/json"
	"fmt"
	"io"
)

// Probe is a light probe object found in the store.
type Probe struct {
	Name       string
	Type       ProbeType
	Resolution [3]int32 // grid resolution, meaningful for grid probes
}

// SceneInfo is the GI configuration of one scene.
type SceneInfo struct {
	Name                 string
	DiffuseBounces       int32
	CubemapResolution    int32
	VisibilityResolution int32
	Skipped              string // reason no texture was written, if any
}

// Texture is one written container.
type Texture struct {
	Scene string
	Kind  TextureKind
	Path  string
	Shape ContainerShape
	Bytes int // payload bytes, header excluded
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Probes   []Probe
	Scenes   []SceneInfo
	Textures []Texture
}

// Skipped returns the scenes that produced no textures.
func (r *Report) Skipped() []SceneInfo {
	var out []SceneInfo
	for _, s := range r.Scenes {
		if s.Skipped != "" {
			out = append(out, s)
		}
	}
	return out
}

type manifestTexture struct {
	Scene         string `json:"scene"`
	Kind          string `json:"kind"`
	Path          string `json:"path"`
	Format        string `json:"format"`
	DXGIFormat    uint32 `json:"dxgi_format"`
	WebGPUFormat  string `json:"webgpu_format"`
	ViewDimension string `json:"view_dimension"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Layers        int    `json:"layers"`
	ArraySize     int    `json:"array_size"`
	Mips          int    `json:"mips"`
	Bytes         int    `json:"bytes"`
}

type manifestScene struct {
	Name                 string `json:"name"`
	DiffuseBounces       int32  `json:"gi_diffuse_bounces"`
	CubemapResolution    int32  `json:"gi_cubemap_resolution"`
	VisibilityResolution int32  `json:"gi_visibility_resolution"`
	Skipped              string `json:"skipped,omitempty"`
}

type manifest struct {
	RunID    string            `json:"run_id,omitempty"`
	Scenes   []manifestScene   `json:"scenes"`
	Textures []manifestTexture `json:"textures"`
}

// WriteManifest writes the report as indented JSON, describing every
// texture with its DXGI and WebGPU format and view dimension.
func WriteManifest(w io.Writer, r *Report) error {
	m := manifest{
		RunID:    r.RunID,
		Scenes:   make([]manifestScene, 0, len(r.Scenes)),
		Textures: make([]manifestTexture, 0, len(r.Textures)),
	}
	for _, s := range r.Scenes {
		m.Scenes = append(m.Scenes, manifestScene{
			Name:                 s.Name,
			DiffuseBounces:       s.DiffuseBounces,
			CubemapResolution:    s.CubemapResolution,
			VisibilityResolution: s.VisibilityResolution,
			Skipped:              s.Skipped,
		})
	}
	for _, t := range r.Textures {
		desc := t.Shape.Descriptor(t.Scene + "/" + string(t.Kind))
		m.Textures = append(m.Textures, manifestTexture{
			Scene:         t.Scene,
			Kind:          string(t.Kind),
			Path:          t.Path,
			Format:        t.Shape.Format.String(),
			DXGIFormat:    t.Shape.Format.DXGI(),
			WebGPUFormat:  desc.Format.String(),
			ViewDimension: t.Shape.ViewDimension().String(),
			Width:         int(desc.Size.Width),
			Height:        int(desc.Size.Height),
			Layers:        int(desc.Size.DepthOrArrayLayers),
			ArraySize:     t.Shape.ArraySize,
			Mips:          int(desc.MipLevelCount),
			Bytes:         t.Bytes,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("lightcache: write manifest: %w", err)
	}
	return nil
}

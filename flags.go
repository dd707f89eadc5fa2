package lightcache

import (
	"fmt"
	"strings"
)

// CacheFlags is the status bit set of a light cache.
type CacheFlags int32

// Light cache status bits.
const (
	FlagBaked      CacheFlags = 1 << 0
	FlagBaking     CacheFlags = 1 << 1
	FlagCubeReady  CacheFlags = 1 << 2
	FlagGridReady  CacheFlags = 1 << 3
	FlagUpdateCube CacheFlags = 1 << 4
	FlagUpdateGrid CacheFlags = 1 << 5
)

var flagNames = []struct {
	flag CacheFlags
	name string
}{
	{FlagBaked, "baked"},
	{FlagBaking, "baking"},
	{FlagCubeReady, "cube-ready"},
	{FlagGridReady, "grid-ready"},
	{FlagUpdateCube, "update-cube"},
	{FlagUpdateGrid, "update-grid"},
}

// Has reports whether every bit of f2 is set.
func (f CacheFlags) Has(f2 CacheFlags) bool {
	return f&f2 == f2
}

// String lists the set bits, e.g. "baked|cube-ready".
func (f CacheFlags) String() string {
	var parts []string
	rest := f
	for _, n := range flagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int32(rest)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ProbeType is the kind of a light probe object.
type ProbeType int8

// Light probe kinds.
const (
	ProbeCube   ProbeType = 0
	ProbePlanar ProbeType = 1
	ProbeGrid   ProbeType = 2
)

// String returns the probe kind name.
func (t ProbeType) String() string {
	switch t {
	case ProbeCube:
		return "cube"
	case ProbePlanar:
		return "planar"
	case ProbeGrid:
		return "grid"
	default:
		// Unknown kinds are reported by number and never abort a run.
		return fmt.Sprintf("unknown(%d)", int8(t))
	}
}

// TextureKind names the two light cache textures.
type TextureKind string

// Light cache textures.
const (
	KindCube TextureKind = "cube_tx"
	KindGrid TextureKind = "grid_tx"
)

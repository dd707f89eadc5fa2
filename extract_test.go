package lightcache

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lightcache/internal/image"
)

const (
	kindByte  int8 = 1
	kindFloat int8 = 2
	kindUint  int8 = 4
)

// mipChain returns mip records below a w x h base, each correctly sized.
func mipChain(w, h, depth, bpp, mips int) []*fakeRecord {
	var levels []*fakeRecord
	for l := 1; l <= mips; l++ {
		mw, mh := image.MipExtent(w, h, l)
		levels = append(levels, texture([3]int32{int32(mw), int32(mh), int32(depth)}, 0, 0,
			filled(mw*mh*depth*bpp, byte(l))))
	}
	return levels
}

func TestExtractScene_CubeArray(t *testing.T) {
	// 128x128, 36 layers, RGBA32F, three mips below the base.
	mips := mipChain(128, 128, 36, 16, 3)
	base := filled(128*128*36*16, 0)
	cube := texture([3]int32{128, 128, 36}, kindFloat, 4, base)
	lc := lightCache(FlagBaked|FlagCubeReady, cube, nil, mips...)

	w := newMemWriter()
	out := t.TempDir()
	texs, err := New(&fakeStore{}, WithWriter(w)).ExtractScene("SCScene", lc, out)
	require.NoError(t, err)
	require.Len(t, texs, 1)

	tex := texs[0]
	assert.Equal(t, KindCube, tex.Kind)
	assert.Equal(t, "SCScene", tex.Scene)
	assert.Equal(t, filepath.Join(out, "SCScene", "cube_tx.mem"), tex.Path)
	assert.True(t, tex.Shape.Cubemap)
	assert.Equal(t, 6, tex.Shape.ArraySize)
	assert.Equal(t, 4, tex.Shape.MipCount)
	assert.Equal(t, image.FormatRGBA32Float, tex.Shape.Format)

	saved := w.saved[tex.Path]
	require.NotNil(t, saved)
	want := base
	for _, m := range mips {
		data, _ := m.Bytes("data")
		want = append(want[:len(want):len(want)], data...)
	}
	assert.Equal(t, len(want), len(saved.payload))
	assert.True(t, bytes.Equal(want, saved.payload), "payload is not base followed by mips")
	assert.Equal(t, len(want), tex.Bytes)
}

func TestExtractScene_InvalidCubeGeometry(t *testing.T) {
	cube := texture([3]int32{128, 128, 35}, kindFloat, 4, filled(128*128*35*16, 0))
	lc := lightCache(FlagBaked|FlagCubeReady, cube, nil)

	w := newMemWriter()
	out := t.TempDir()
	_, err := New(&fakeStore{}, WithWriter(w)).ExtractScene("SCScene", lc, out)
	require.ErrorIs(t, err, ErrInvalidCubeGeometry)
	assert.Contains(t, err.Error(), `scene "SCScene"`)
	assert.Empty(t, w.saved)
	assert.DirExists(t, filepath.Join(out, "SCScene"))
}

func TestExtractScene_GridOnly(t *testing.T) {
	grid := texture([3]int32{32, 32, 16}, kindByte, 1, filled(32*32*16, 9))
	lc := lightCache(FlagBaked|FlagGridReady, nil, grid)

	w := newMemWriter()
	out := t.TempDir()
	texs, err := New(&fakeStore{}, WithWriter(w)).ExtractScene("SCScene", lc, out)
	require.NoError(t, err)
	require.Len(t, texs, 1)

	shape := texs[0].Shape
	assert.Equal(t, KindGrid, texs[0].Kind)
	assert.False(t, shape.Cubemap)
	assert.Equal(t, 1, shape.MipCount)
	assert.Equal(t, 16, shape.ArraySize)
	assert.Equal(t, image.FormatR8Unorm, shape.Format)

	assert.Equal(t, []string{filepath.Join(out, "SCScene", "grid_tx.mem")}, w.paths())
}

func TestExtractScene_BothTextures(t *testing.T) {
	mips := mipChain(4, 4, 6, 4, 2)
	cube := texture([3]int32{4, 4, 6}, kindByte, 4, filled(4*4*6*4, 1))
	grid := texture([3]int32{8, 2, 3}, kindUint, 1, filled(8*2*3*4, 2))
	lc := lightCache(FlagBaked|FlagCubeReady|FlagGridReady, cube, grid, mips...)

	w := newMemWriter()
	texs, err := New(&fakeStore{}, WithWriter(w)).ExtractScene("SCScene", lc, t.TempDir())
	require.NoError(t, err)
	require.Len(t, texs, 2)
	assert.Equal(t, KindCube, texs[0].Kind)
	assert.Equal(t, KindGrid, texs[1].Kind)
	assert.Equal(t, image.FormatRG11B10Float, texs[1].Shape.Format)
	assert.Len(t, w.saved, 2)
}

func TestExtractScene_Skips(t *testing.T) {
	cube := texture([3]int32{4, 4, 6}, kindByte, 4, filled(4*4*6*4, 1))
	grid := texture([3]int32{4, 4, 1}, kindByte, 4, filled(4*4*4, 1))

	tests := []struct {
		name  string
		flags CacheFlags
	}{
		{"baked only", FlagBaked},
		{"ready but not baked", FlagCubeReady | FlagGridReady},
		{"baking", FlagBaking},
		{"no flags", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newMemWriter()
			out := t.TempDir()
			texs, err := New(&fakeStore{}, WithWriter(w)).ExtractScene("SCScene", lightCache(tt.flags, cube, grid), out)
			require.NoError(t, err)
			assert.Empty(t, texs)
			assert.Empty(t, w.created)
			assert.DirExists(t, filepath.Join(out, "SCScene"))
		})
	}
}

func TestExtractScene_PayloadShortfall(t *testing.T) {
	grid := texture([3]int32{4, 4, 2}, kindByte, 4, filled(4*4*2*4-1, 0))
	lc := lightCache(FlagBaked|FlagGridReady, nil, grid)

	w := newMemWriter()
	_, err := New(&fakeStore{}, WithWriter(w)).ExtractScene("SCScene", lc, t.TempDir())
	require.ErrorIs(t, err, ErrIncompletePayload)

	var perr *PayloadError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Remaining)
	assert.Contains(t, err.Error(), "remaining bytes: 1")
	assert.Empty(t, w.saved)
}

func TestExtractScene_PayloadOverflow(t *testing.T) {
	mips := mipChain(4, 4, 6, 4, 1)
	mips = append(mips, texture([3]int32{1, 1, 6}, 0, 0, filled(64, 0)))
	cube := texture([3]int32{4, 4, 6}, kindByte, 4, filled(4*4*6*4, 1))
	// Two mip records, but the second carries far too many bytes.
	lc := lightCache(FlagBaked|FlagCubeReady, cube, nil, mips...)

	_, err := New(&fakeStore{}, WithWriter(newMemWriter())).ExtractScene("SCScene", lc, t.TempDir())
	require.ErrorIs(t, err, ErrPayloadOverflow)
}

func TestExtractScene_UnsupportedFormat(t *testing.T) {
	tests := []struct {
		name       string
		dataType   int8
		components int8
	}{
		{"byte with three channels", kindByte, 3},
		{"packed with four channels", kindUint, 4},
		{"unknown kind", 8, 1},
		{"combined kinds", kindByte | kindFloat, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := texture([3]int32{2, 2, 1}, tt.dataType, tt.components, filled(64, 0))
			lc := lightCache(FlagBaked|FlagGridReady, nil, grid)
			_, err := New(&fakeStore{}, WithWriter(newMemWriter())).ExtractScene("SCScene", lc, t.TempDir())
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestExtractScene_MissingField(t *testing.T) {
	lc := rec("LightCache", "flag", int32(FlagBaked|FlagGridReady))
	_, err := New(&fakeStore{}, WithWriter(newMemWriter())).ExtractScene("SCScene", lc, t.TempDir())
	assert.ErrorIs(t, err, errNoField)
}

func TestExtractScene_WritesDDS(t *testing.T) {
	grid := texture([3]int32{4, 4, 3}, kindFloat, 1, filled(4*4*3*4, 0))
	lc := lightCache(FlagBaked|FlagGridReady, nil, grid)

	out := t.TempDir()
	texs, err := New(&fakeStore{}).ExtractScene("SCScene", lc, out)
	require.NoError(t, err)
	require.Len(t, texs, 1)

	path := filepath.Join(out, "SCScene", "grid_tx.dds")
	assert.Equal(t, path, texs[0].Path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(4*4*3*4))
}

// runStore holds one baked scene, one scene without a light cache, one
// unbaked scene and a mix of probe and non-probe objects.
func runStore() *fakeStore {
	grid := texture([3]int32{2, 2, 4}, kindByte, 2, filled(2*2*4*2, 0))
	return (&fakeStore{}).
		add("OB", probeObject("IrradianceVolume", 2, [3]int32{4, 5, 6})).
		add("OB", rec("Object", "id", rec("ID", "name", "OBCamera"), "data", rec("Camera"))).
		add("OB", rec("Object", "id", rec("ID", "name", "OBEmpty"), "data", (*fakeRecord)(nil))).
		add("OB", probeObject("Odd", 7, [3]int32{1, 1, 1})).
		add("SC", scene("Main", lightCache(FlagBaked|FlagGridReady, nil, grid))).
		add("SC", scene("NoCache", nil)).
		add("SC", scene("Unbaked", lightCache(0, nil, nil)))
}

func TestRun(t *testing.T) {
	var diag, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := newMemWriter()
	out := t.TempDir()

	rep, err := New(runStore(),
		WithWriter(w),
		WithDiagnostics(&diag),
		WithLogger(logger),
		WithRunID("run-1"),
	).Run(out)
	require.NoError(t, err)

	assert.Equal(t, "run-1", rep.RunID)
	require.Len(t, rep.Probes, 2)
	assert.Equal(t, Probe{Name: "OBIrradianceVolume", Type: ProbeGrid, Resolution: [3]int32{4, 5, 6}}, rep.Probes[0])
	assert.Equal(t, "unknown(7)", rep.Probes[1].Type.String())

	require.Len(t, rep.Scenes, 3)
	assert.Equal(t, "SCMain", rep.Scenes[0].Name)
	assert.Equal(t, int32(512), rep.Scenes[0].CubemapResolution)
	assert.Empty(t, rep.Scenes[0].Skipped)
	assert.Equal(t, "no light cache", rep.Scenes[1].Skipped)
	assert.Equal(t, "not baked", rep.Scenes[2].Skipped)
	assert.Len(t, rep.Skipped(), 2)

	require.Len(t, rep.Textures, 1)
	assert.Equal(t, filepath.Join(out, "SCMain", "grid_tx.mem"), rep.Textures[0].Path)

	for _, dir := range []string{"SCMain", "SCNoCache", "SCUnbaked"} {
		assert.DirExists(t, filepath.Join(out, dir))
	}
	assert.NoDirExists(t, filepath.Join(out, "Main"))

	d := diag.String()
	assert.Contains(t, d, `"OBIrradianceVolume" type: grid resolution: 4x5x6`)
	assert.Contains(t, d, `"OBOdd" type: unknown(7) resolution: 1x1x1`)
	assert.Contains(t, d, "SCMain: gi_diffuse_bounces: 3, gi_cubemap_resolution: 512, gi_visibility_resolution: 16")
	assert.Contains(t, d, "SCMain: grid_tx")

	l := logs.String()
	assert.Contains(t, l, "run=run-1")
	assert.Contains(t, l, "scene has no light cache")
}

func TestRun_IDCodeStripping(t *testing.T) {
	var diag bytes.Buffer
	out := t.TempDir()

	rep, err := New(runStore(),
		WithWriter(newMemWriter()),
		WithDiagnostics(&diag),
		WithIDCodeStripping(true),
	).Run(out)
	require.NoError(t, err)

	assert.Equal(t, "IrradianceVolume", rep.Probes[0].Name)
	assert.Equal(t, "Main", rep.Scenes[0].Name)
	require.Len(t, rep.Textures, 1)
	assert.Equal(t, filepath.Join(out, "Main", "grid_tx.mem"), rep.Textures[0].Path)
	assert.NoDirExists(t, filepath.Join(out, "SCMain"))

	d := diag.String()
	assert.Contains(t, d, `"IrradianceVolume" type: grid resolution: 4x5x6`)
	assert.Contains(t, d, "\nMain: gi_diffuse_bounces: 3")
}

func TestRun_AbortsOnFirstError(t *testing.T) {
	bad := texture([3]int32{4, 4, 7}, kindByte, 1, filled(4*4*7, 0))
	good := texture([3]int32{1, 1, 1}, kindByte, 1, filled(1, 0))
	store := (&fakeStore{}).
		add("SC", scene("Broken", lightCache(FlagBaked|FlagCubeReady, bad, nil))).
		add("SC", scene("Later", lightCache(FlagBaked|FlagGridReady, nil, good)))

	w := newMemWriter()
	rep, err := New(store, WithWriter(w)).Run(t.TempDir())
	require.ErrorIs(t, err, ErrInvalidCubeGeometry)
	assert.Empty(t, w.saved)
	require.Len(t, rep.Scenes, 1)
	assert.Equal(t, "SCBroken", rep.Scenes[0].Name)
}

func TestDirName(t *testing.T) {
	decomposed := "Cafe\u0301"
	tests := []struct {
		name      string
		scene     string
		normalize bool
		want      string
	}{
		{"plain", "Scene", true, "Scene"},
		{"nfc", decomposed, true, "Caf\u00e9"},
		{"nfc disabled", decomposed, false, decomposed},
		{"separators", "a/b\\c", true, "a_b_c"},
		{"empty", "", true, "_"},
		{"dot dot", "..", true, "_.."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(&fakeStore{}, WithNameNormalization(tt.normalize))
			assert.Equal(t, tt.want, e.dirName(tt.scene))
		})
	}
}

func TestCacheFlags_String(t *testing.T) {
	assert.Equal(t, "baked|cube-ready|grid-ready", (FlagBaked | FlagCubeReady | FlagGridReady).String())
	assert.Equal(t, "none", CacheFlags(0).String())
	assert.True(t, strings.HasSuffix(CacheFlags(FlagBaked|0x100).String(), "|0x100"))
	assert.True(t, (FlagBaked | FlagGridReady).Has(FlagBaked))
	assert.False(t, FlagBaked.Has(FlagBaked|FlagGridReady))
}

package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecl(t *testing.T) {
	tests := []struct {
		decl    string
		ident   string
		pointer bool
		count   int
	}{
		{"flag", "flag", false, 1},
		{"*next", "next", true, 1},
		{"**mat", "mat", true, 1},
		{"name[66]", "name", false, 66},
		{"_pad[4][2]", "_pad", false, 8},
		{"*mtex[18]", "mtex", true, 18},
		{"(*func)()", "func", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			ident, pointer, count, err := parseDecl(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.ident, ident)
			assert.Equal(t, tt.pointer, pointer)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestParseDecl_Invalid(t *testing.T) {
	for _, decl := range []string{"", "*", "x[", "x[a]", "[3]"} {
		_, _, _, err := parseDecl(decl)
		assert.ErrorIs(t, err, ErrCorruptDNA, decl)
	}
}

func TestBuildLayout(t *testing.T) {
	f := parseSample(t)

	l, err := f.LayoutByName("LightCacheTexture")
	require.NoError(t, err)
	assert.Equal(t, 8+8+12+4, l.Size)

	data, ok := l.Field("data")
	require.True(t, ok)
	assert.True(t, data.Pointer)
	assert.Equal(t, 8, data.Offset)

	size, ok := l.Field("tex_size")
	require.True(t, ok)
	assert.Equal(t, 16, size.Offset)
	assert.Equal(t, 3, size.Count)
	assert.Equal(t, 4, size.ElemSize())

	lc, err := f.LayoutByName("LightCache")
	require.NoError(t, err)
	cube, ok := lc.Field("cube_tx")
	require.True(t, ok)
	assert.Equal(t, "LightCacheTexture", f.DNA.StructName(cube.Struct))
	mips, ok := lc.Field("cube_mips")
	require.True(t, ok)
	assert.Equal(t, -1, mips.Struct)
}

func TestLayoutCache_Evicts(t *testing.T) {
	c := newLayoutCache(4)
	build := func(i int) (*Layout, error) { return &Layout{Index: i}, nil }

	for i := range 10 {
		_, err := c.getOrBuild(i, build)
		require.NoError(t, err)
	}
	stats := c.stats()
	assert.LessOrEqual(t, stats.Len, 4)
	assert.Equal(t, uint64(10), stats.Misses)

	// The newest entry survives eviction.
	l, err := c.getOrBuild(9, func(int) (*Layout, error) {
		t.Fatal("rebuilt a cached layout")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, l.Index)
}

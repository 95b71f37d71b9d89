package oslbuild_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
	"github.com/soypat/glgl/math/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprFormatting(t *testing.T) {
	tests := []struct {
		expr oslbuild.Expr
		want string
	}{
		{oslbuild.Float(0.5), "float 0.5"},
		{oslbuild.Float(1), "float 1"},
		{oslbuild.Float(-0.25), "float -0.25"},
		{oslbuild.Float(float32(math.NaN())), "float 0"},
		{oslbuild.Float(float32(math.Inf(-1))), "float 0"},
		{oslbuild.Percent(50), "float 0.5"},
		{oslbuild.Percent(0), "float 0"},
		{oslbuild.Int(1), "int 1"},
		{oslbuild.String("Green"), "string Green"},
		{oslbuild.Texture(""), "string "},
		{oslbuild.Color(ms3.Vec{X: 1, Y: 0.5, Z: 0}), "color 1 0.5 0"},
	}
	for _, test := range tests {
		if got := test.expr.String(); got != test.want {
			t.Errorf("want %q, got %q", test.want, got)
		}
	}
}

func TestColorConversions(t *testing.T) {
	linear := ms3.Vec{X: 0.2, Y: 0.5, Z: 0.0015}
	srgb := oslbuild.LinearToSRGB(linear)
	back := oslbuild.SRGBToLinear(srgb)
	assert.InDelta(t, linear.X, back.X, 1e-5)
	assert.InDelta(t, linear.Y, back.Y, 1e-5)
	assert.InDelta(t, linear.Z, back.Z, 1e-5)
	assert.InDelta(t, 0.7353569, srgb.Y, 1e-5)
	assert.InDelta(t, 12.92*0.0015, srgb.Z, 1e-6, "linear segment near black")

	one := oslbuild.GammaColor(ms3.Vec{X: 1, Y: 1, Z: 1})
	assert.Equal(t, "color 1 1 1", one.String())
	assert.Equal(t, ms3.Vec{X: 1, Y: 1, Z: 1}, oslbuild.LinearToSRGB(ms3.Vec{X: 1, Y: 1, Z: 1}), "white maps exactly")
	assert.Equal(t, ms3.Vec{X: 1, Y: 1, Z: 1}, oslbuild.SRGBToLinear(ms3.Vec{X: 1, Y: 1, Z: 1}))
	assert.Equal(t, ms3.Vec{}, oslbuild.LinearToSRGB(ms3.Vec{}))
	assert.InDelta(t, 1, oslbuild.Luminance(ms3.Vec{X: 1, Y: 1, Z: 1}), 1e-6)
}

func TestSeExpr(t *testing.T) {
	assert.Equal(t, "[0.5, 1, 0]", oslbuild.SeColor(ms3.Vec{X: 0.5, Y: 1}))
	tex := oslbuild.SeTexture("/maps/wood.png", 512, 256)
	assert.Equal(t, `texture("/maps/wood.png", $u % 512, $v % 256)`, tex)
	assert.Equal(t, "0.25", oslbuild.SeScalar(25, ""))
	assert.Equal(t, "0.25 * "+tex, oslbuild.SeScalar(25, tex))
}

func newTextureGroup(t *testing.T, name string) *oslbuild.Group {
	t.Helper()
	g := oslbuild.NewGroup(name + "_shader_group")
	require.NoError(t, g.AddShader(osllib.TypeShader, osllib.ColorTexture, name+"_Color_texture",
		oslbuild.Param{Name: "Filename", Value: oslbuild.Texture("/maps/" + name + ".png")}))
	require.NoError(t, g.AddConnection(name+"_Color_texture", "ColorOut", name, "Color"))
	require.NoError(t, g.AddShader(osllib.TypeSurface, osllib.Matte, name))
	return g
}

func TestParams(t *testing.T) {
	p := oslbuild.NewParams(
		oslbuild.Param{Name: "Color", Value: oslbuild.Float(1)},
		oslbuild.Param{Name: "Roughness", Value: oslbuild.Float(0.5)},
		oslbuild.Param{Name: "Color", Value: oslbuild.Float(0.25)},
	)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []oslbuild.Param{
		{Name: "Color", Value: oslbuild.Float(0.25)},
		{Name: "Roughness", Value: oslbuild.Float(0.5)},
	}, p.List(), "a repeated name replaces the value in place")

	c := p.Clone().Set("Metallic", oslbuild.Float(1))
	_, ok := p.Get("Metallic")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
	_, ok = oslbuild.Params{}.Get("Color")
	assert.False(t, ok)
	assert.Zero(t, oslbuild.Params{}.Len())
}

func TestGroupLayers(t *testing.T) {
	g := newTextureGroup(t, "Wood_mat")
	assert.Equal(t, "Wood_mat_shader_group", g.Name())
	assert.Equal(t, 2, g.NumShaders())
	assert.Equal(t, 1, g.NumConnections())
	surface, ok := g.Surface()
	require.True(t, ok)
	assert.Equal(t, "Wood_mat", surface.Layer)
	assert.Len(t, g.ConnectionsTo("Wood_mat"), 1)

	err := g.AddShader(osllib.TypeShader, osllib.FloatTexture, "Wood_mat")
	assert.ErrorIs(t, err, oslbuild.ErrDuplicateLayer)
	assert.ErrorIs(t, g.AddShader(osllib.TypeShader, osllib.FloatTexture, ""), oslbuild.ErrEmptyLayer)
	assert.ErrorIs(t, g.AddConnection("nope", "FloatOut", "Wood_mat", "Color"), oslbuild.ErrUnknownLayer)
	assert.NoError(t, oslbuild.Validate(g))
}

func TestGroupMerge(t *testing.T) {
	a := newTextureGroup(t, "Wood_mat")
	b := newTextureGroup(t, "Varnish_mat")
	blend := oslbuild.NewGroup("Blend_shader_group")
	require.NoError(t, blend.Merge(a))
	require.NoError(t, blend.Merge(b))
	assert.Equal(t, a.NumShaders()+b.NumShaders(), blend.NumShaders())
	assert.Equal(t, a.NumConnections()+b.NumConnections(), blend.NumConnections())

	err := blend.Merge(a)
	assert.ErrorIs(t, err, oslbuild.ErrDuplicateLayer)
	assert.Equal(t, a.NumShaders()+b.NumShaders(), blend.NumShaders(), "failed merge must not copy layers")

	// Merged parameters must not alias the source group.
	merged, _ := blend.Shader("Wood_mat_Color_texture")
	merged.Params.Set("Filename", oslbuild.String("changed"))
	orig, _ := a.Shader("Wood_mat_Color_texture")
	filename, _ := orig.Params.Get("Filename")
	assert.Equal(t, "/maps/Wood_mat.png", filename.Value)
}

func TestValidate(t *testing.T) {
	g := oslbuild.NewGroup("bad")
	require.NoError(t, g.AddShader(osllib.TypeShader, "as_unknown", "a"))
	require.NoError(t, g.AddShader(osllib.TypeShader, osllib.FloatTexture, "b",
		oslbuild.Param{Name: "NotAnInput", Value: oslbuild.Float(1)}))
	require.NoError(t, g.AddConnection("b", "ColorOut", "c", "Height"))
	require.NoError(t, g.AddShader(osllib.TypeShader, osllib.BumpMap, "c"))
	require.NoError(t, g.AddConnection("c", "NormalOut", "b", "U"))
	err := oslbuild.Validate(g)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{`unknown model "as_unknown"`, `"NotAnInput" is not an input`, `"ColorOut" is not an output`, "against declaration order"} {
		assert.Contains(t, msg, want)
	}
}

func TestWriteGroup(t *testing.T) {
	g := newTextureGroup(t, "Wood_mat")
	var buf bytes.Buffer
	n, err := oslbuild.WriteGroup(&buf, g)
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)
	text := buf.String()
	assert.True(t, strings.HasPrefix(text, `shader_group "Wood_mat_shader_group"`))
	assert.Contains(t, text, "\tFilename string /maps/Wood_mat.png\n")
	assert.Contains(t, text, `connect "Wood_mat_Color_texture" ColorOut "Wood_mat" Color`)
}

func TestBlendPorts(t *testing.T) {
	assert.Equal(t, "m1", osllib.BlendInput(0))
	assert.Equal(t, "m2", osllib.BlendInput(1))
	assert.Equal(t, "MixAmount", osllib.BlendAmount(1))
	assert.Equal(t, "MixAmount3", osllib.BlendAmount(3))
	assert.Equal(t, "MixMask2", osllib.BlendMask(2))
	m, ok := osllib.Lookup(osllib.BlendMaterial)
	require.True(t, ok)
	assert.True(t, m.HasInput("m8"))
	assert.False(t, m.HasInput("m9"))
	assert.True(t, m.HasOutput(osllib.ClosureOutput))
}

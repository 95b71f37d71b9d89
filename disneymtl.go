package asmax

import (
	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/soypat/glgl/math/ms3"
)

var DisneyMtlClassID = maxhost.ClassID{A: 0x331b1ff7, B: 0x16381b67}

// Parameters of [DisneyMtl]. Each value is followed by its texture map.
const (
	DisneyParamBaseColor maxhost.ParamID = iota
	DisneyParamBaseColorTexmap
	DisneyParamMetallic
	DisneyParamMetallicTexmap
	DisneyParamSpecular
	DisneyParamSpecularTexmap
	DisneyParamSpecularTint
	DisneyParamSpecularTintTexmap
	DisneyParamAnisotropic
	DisneyParamAnisotropicTexmap
	DisneyParamRoughness
	DisneyParamRoughnessTexmap
	DisneyParamClearcoat
	DisneyParamClearcoatTexmap
	DisneyParamClearcoatGloss
	DisneyParamClearcoatGlossTexmap
)

// disneyScalar is a 0..100 parameter of the Disney material.
type disneyScalar struct {
	osl   string
	layer string
	value maxhost.ParamID
}

var disneyScalars = []disneyScalar{
	{osl: "Metallic", layer: "metallic", value: DisneyParamMetallic},
	{osl: "Specular", layer: "specular", value: DisneyParamSpecular},
	{osl: "SpecularTint", layer: "specular_tint", value: DisneyParamSpecularTint},
	{osl: "Anisotropic", layer: "anisotropic", value: DisneyParamAnisotropic},
	{osl: "Roughness", layer: "roughness", value: DisneyParamRoughness},
	{osl: "Clearcoat", layer: "clearcoat", value: DisneyParamClearcoat},
	{osl: "ClearcoatGloss", layer: "clearcoat_gloss", value: DisneyParamClearcoatGloss},
}

func disneyDefs() []maxhost.ParamDef {
	defs := []maxhost.ParamDef{
		{ID: DisneyParamBaseColor, Name: "base_color", Type: maxhost.TypeColor, Default: ms3.Vec{X: 0.9, Y: 0.9, Z: 0.9}},
		{ID: DisneyParamBaseColorTexmap, Name: "base_color_texmap", Type: maxhost.TypeTexmap},
	}
	for _, s := range disneyScalars {
		defs = append(defs,
			maxhost.ParamDef{ID: s.value, Name: s.layer, Type: maxhost.TypeFloat, Min: 0, Max: 100},
			maxhost.ParamDef{ID: s.value + 1, Name: s.layer + "_texmap", Type: maxhost.TypeTexmap},
		)
	}
	return defs
}

type disneyParams struct {
	baseColor    ms3.Vec
	baseColorTex texmap.Texmap
	scalars      [7]float32
	scalarTex    [7]texmap.Texmap
}

// DisneyMtl is the Disney principled material.
type DisneyMtl struct {
	adapter[disneyParams]
}

var _ AppleseedMtl = (*DisneyMtl)(nil)

func NewDisneyMtl(name string) *DisneyMtl {
	m := &DisneyMtl{}
	m.init(name, maxhost.NewParamBlock(disneyDefs()...))
	return m
}

func (m *DisneyMtl) ClassID() maxhost.ClassID { return DisneyMtlClassID }
func (m *DisneyMtl) NumSubMtls() int          { return 0 }
func (m *DisneyMtl) SubMtl(int) Mtl           { return nil }

func (m *DisneyMtl) Update(t maxhost.TimeValue) maxhost.Interval {
	return m.update(t, func(t maxhost.TimeValue, valid *maxhost.Interval) (p disneyParams) {
		p.baseColor = m.pb.Color(DisneyParamBaseColor, t, valid)
		p.baseColorTex = texmapParam(m.pb, DisneyParamBaseColorTexmap, t, valid)
		for i, s := range disneyScalars {
			p.scalars[i] = m.pb.Float(s.value, t, valid)
			p.scalarTex[i] = texmapParam(m.pb, s.value+1, t, valid)
		}
		return p
	})
}

func (m *DisneyMtl) CreateMaterial(b *Builder, name string) *scene.Material {
	if b.UseMaxProceduralMaps() {
		return m.createBuiltinMaterial(name)
	}
	return m.createOSLMaterial(b, name)
}

func (m *DisneyMtl) createOSLMaterial(b *Builder, name string) *scene.Material {
	p := m.params()
	gr := b.NewGraph(name)
	gr.ConnectColor("BaseColor", p.baseColorTex, ms3.Vec{X: 1, Y: 1, Z: 1})
	params := []oslbuild.Param{param("BaseColor", ColorExpr(osllib.DisneyMaterial, p.baseColor))}
	for i, s := range disneyScalars {
		gr.ConnectFloat(s.osl, p.scalarTex[i], p.scalars[i]/100)
		params = append(params, param(s.osl, oslbuild.Percent(p.scalars[i])))
	}
	return gr.Finish(osllib.DisneyMaterial, params...)
}

// createBuiltinMaterial returns a Disney material with a single layer of
// SeExpr values. The layer expects sRGB colors.
func (m *DisneyMtl) createBuiltinMaterial(name string) *scene.Material {
	p := m.params()
	values := scene.DefaultDisneyLayer()
	if tex := seTexture(p.baseColorTex); tex != "" {
		values = values.Insert("base_color", tex)
	} else {
		values = values.Insert("base_color", oslbuild.SeColor(oslbuild.LinearToSRGB(p.baseColor)))
	}
	for i, s := range disneyScalars {
		values = values.Insert(s.layer, oslbuild.SeScalar(p.scalars[i], seTexture(p.scalarTex[i])))
	}
	mat := scene.NewDisneyMaterial(name, scene.ParamArray{})
	mat.AddLayer(values)
	return mat
}

// seTexture returns the SeExpr lookup of a bitmap texture or "" for any other texture.
func seTexture(tex texmap.Texmap) string {
	if texmap.Classify(tex) != texmap.KindBitmap {
		return ""
	}
	bm := tex.(texmap.BitmapHolder).Bitmap()
	return oslbuild.SeTexture(bm.Path, bm.Width, bm.Height)
}

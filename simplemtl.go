package asmax

import (
	"log/slog"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/soypat/glgl/math/ms3"
)

var (
	MatteMtlClassID   = maxhost.ClassID{A: 0x4aa35e2f, B: 0x1a3f7c61}
	PlasticMtlClassID = maxhost.ClassID{A: 0x72f0a6c5, B: 0x2d1b93e7}
)

// Parameters of simple materials. Matte materials declare only the diffuse
// color, bump and normal map parameters.
const (
	SimpleParamDiffuse maxhost.ParamID = iota
	SimpleParamDiffuseTexmap
	SimpleParamSpecular
	SimpleParamSpecularTexmap
	SimpleParamRoughness
	SimpleParamRoughnessTexmap
	SimpleParamBumpTexmap
	SimpleParamBumpAmount
	SimpleParamNormalTexmap
	SimpleParamNormalUpVector
)

// simpleInput is a texturable input of a simple material's surface shader.
type simpleInput struct {
	osl     string
	builtin string
	value   maxhost.ParamID
	texmap  maxhost.ParamID
	// percent inputs are 0..100 floats, others are colors.
	percent bool
}

type simpleKind struct {
	class        maxhost.ClassID
	model        string
	builtinModel string
	inputs       []simpleInput
	defs         []maxhost.ParamDef
}

var matteKind = simpleKind{
	class:        MatteMtlClassID,
	model:        osllib.Matte,
	builtinModel: "lambertian_brdf",
	inputs: []simpleInput{
		{osl: "Color", builtin: "reflectance", value: SimpleParamDiffuse, texmap: SimpleParamDiffuseTexmap},
	},
	defs: []maxhost.ParamDef{
		{ID: SimpleParamDiffuse, Name: "color", Type: maxhost.TypeColor, Default: ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
		{ID: SimpleParamDiffuseTexmap, Name: "color_texmap", Type: maxhost.TypeTexmap},
	},
}

var plasticKind = simpleKind{
	class:        PlasticMtlClassID,
	model:        osllib.Plastic,
	builtinModel: "plastic_brdf",
	inputs: []simpleInput{
		{osl: "DiffuseColor", builtin: "diffuse_reflectance", value: SimpleParamDiffuse, texmap: SimpleParamDiffuseTexmap},
		{osl: "SpecularColor", builtin: "specular_reflectance", value: SimpleParamSpecular, texmap: SimpleParamSpecularTexmap},
		{osl: "Roughness", builtin: "roughness", value: SimpleParamRoughness, texmap: SimpleParamRoughnessTexmap, percent: true},
	},
	defs: []maxhost.ParamDef{
		{ID: SimpleParamDiffuse, Name: "diffuse_color", Type: maxhost.TypeColor, Default: ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
		{ID: SimpleParamDiffuseTexmap, Name: "diffuse_color_texmap", Type: maxhost.TypeTexmap},
		{ID: SimpleParamSpecular, Name: "specular_color", Type: maxhost.TypeColor, Default: ms3.Vec{X: 1, Y: 1, Z: 1}},
		{ID: SimpleParamSpecularTexmap, Name: "specular_color_texmap", Type: maxhost.TypeTexmap},
		{ID: SimpleParamRoughness, Name: "roughness", Type: maxhost.TypeFloat, Default: float32(30), Min: 0, Max: 100},
		{ID: SimpleParamRoughnessTexmap, Name: "roughness_texmap", Type: maxhost.TypeTexmap},
	},
}

var surfaceDefs = []maxhost.ParamDef{
	{ID: SimpleParamBumpTexmap, Name: "bump_texmap", Type: maxhost.TypeTexmap},
	{ID: SimpleParamBumpAmount, Name: "bump_amount", Type: maxhost.TypeFloat, Default: float32(1), Min: 0, Max: 100},
	{ID: SimpleParamNormalTexmap, Name: "normal_texmap", Type: maxhost.TypeTexmap},
	{ID: SimpleParamNormalUpVector, Name: "normal_up_vector", Type: maxhost.TypeInt, Min: 0, Max: 1},
}

type simpleValue struct {
	color  ms3.Vec
	amount float32
	tex    texmap.Texmap
}

type simpleParams struct {
	inputs     []simpleValue
	bump       texmap.Texmap
	bumpAmount float32
	normal     texmap.Texmap
	up         UpVector
}

// SimpleMtl is a single BSDF material with texturable inputs, a bump map and
// a normal map. The normal map takes precedence when both are bound.
type SimpleMtl struct {
	adapter[simpleParams]
	kind *simpleKind
}

var _ AppleseedMtl = (*SimpleMtl)(nil)

// NewMatteMtl returns a lambertian material.
func NewMatteMtl(name string) *SimpleMtl { return newSimpleMtl(name, &matteKind) }

// NewPlasticMtl returns a glossy dielectric material over a diffuse substrate.
func NewPlasticMtl(name string) *SimpleMtl { return newSimpleMtl(name, &plasticKind) }

func newSimpleMtl(name string, kind *simpleKind) *SimpleMtl {
	defs := append(append([]maxhost.ParamDef(nil), kind.defs...), surfaceDefs...)
	m := &SimpleMtl{kind: kind}
	m.init(name, maxhost.NewParamBlock(defs...))
	return m
}

func (m *SimpleMtl) ClassID() maxhost.ClassID { return m.kind.class }
func (m *SimpleMtl) NumSubMtls() int          { return 0 }
func (m *SimpleMtl) SubMtl(int) Mtl           { return nil }

func (m *SimpleMtl) Update(t maxhost.TimeValue) maxhost.Interval {
	return m.update(t, m.read)
}

func (m *SimpleMtl) read(t maxhost.TimeValue, valid *maxhost.Interval) simpleParams {
	pb := m.pb
	p := simpleParams{inputs: make([]simpleValue, len(m.kind.inputs))}
	for i, in := range m.kind.inputs {
		if in.percent {
			p.inputs[i].amount = pb.Float(in.value, t, valid)
		} else {
			p.inputs[i].color = pb.Color(in.value, t, valid)
		}
		p.inputs[i].tex = texmapParam(pb, in.texmap, t, valid)
	}
	p.bump = texmapParam(pb, SimpleParamBumpTexmap, t, valid)
	p.bumpAmount = pb.Float(SimpleParamBumpAmount, t, valid)
	p.normal = texmapParam(pb, SimpleParamNormalTexmap, t, valid)
	p.up = UpVector(pb.Int(SimpleParamNormalUpVector, t, valid))
	return p
}

func (m *SimpleMtl) CreateMaterial(b *Builder, name string) *scene.Material {
	if b.UseMaxProceduralMaps() {
		return m.createBuiltinMaterial(b, name)
	}
	return m.createOSLMaterial(b, name)
}

func (m *SimpleMtl) createOSLMaterial(b *Builder, name string) *scene.Material {
	p := m.params()
	gr := b.NewGraph(name)
	var params []oslbuild.Param
	for i, in := range m.kind.inputs {
		v := p.inputs[i]
		if in.percent {
			gr.ConnectFloat(in.osl, v.tex, v.amount/100)
			params = append(params, param(in.osl, oslbuild.Percent(v.amount)))
		} else {
			gr.ConnectColor(in.osl, v.tex, ms3.Vec{X: 1, Y: 1, Z: 1})
			params = append(params, param(in.osl, ColorExpr(m.kind.model, v.color)))
		}
	}
	if !gr.ConnectNormal("Normal", "Tn", p.normal, p.up) {
		gr.ConnectBump("Normal", "Tn", p.bump, p.bumpAmount)
	}
	return gr.Finish(m.kind.model, params...)
}

// createBuiltinMaterial returns a generic material whose textured inputs
// reference texture instances.
func (m *SimpleMtl) createBuiltinMaterial(b *Builder, name string) *scene.Material {
	p := m.params()
	params := scene.ParamArray{}.Insert("bsdf_model", m.kind.builtinModel)
	for i, in := range m.kind.inputs {
		v := p.inputs[i]
		if inst, ok := b.RegisterTexture(v.tex, scene.ParamArray{}, scene.ParamArray{}); ok {
			params = params.Insert(in.builtin, inst)
		} else if in.percent {
			params = params.Insert(in.builtin, string(oslbuild.AppendFloat(nil, v.amount/100)))
		} else {
			params = params.Insert(in.builtin, string(oslbuild.AppendColor(nil, ' ', v.color)))
		}
	}
	if inst, ok := b.RegisterTexture(p.normal, scene.ParamArray{}, scene.ParamArray{}); ok {
		up := "y"
		if p.up == UpBlue {
			up = "z"
		}
		params = params.Insert("displacement_method", "normal").
			Insert("displacement_map", inst).
			Insert("normal_map_up", up)
	} else if inst, ok := b.RegisterTexture(p.bump, scene.ParamArray{}, scene.ParamArray{}); ok {
		params = params.Insert("displacement_method", "bump").
			Insert("displacement_map", inst).
			Insert("bump_amplitude", string(oslbuild.AppendFloat(nil, p.bumpAmount)))
	}
	b.log.Debug("builtin material", slog.String("name", name), slog.Int("params", len(params)))
	return scene.NewGenericMaterial(name, params)
}

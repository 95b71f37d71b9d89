package asmax

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/soypat/glgl/math/ms3"
)

var BlendMtlClassID = maxhost.ClassID{A: 0x27752cf8, B: 0x5e8c6be3}

// MaxBlendCoats is the largest number of coats of a [BlendMtl].
const MaxBlendCoats = osllib.MaxBlendSlots - 1

// BlendParamBaseMtl is the base material parameter of [BlendMtl].
const BlendParamBaseMtl maxhost.ParamID = 0

// BlendParamCoatMtl returns the material parameter of coat i, starting at 1.
func BlendParamCoatMtl(i int) maxhost.ParamID { return blendCoatParam(i, 1) }

// BlendParamMixAmount returns the 0..100 mix amount parameter of coat i.
func BlendParamMixAmount(i int) maxhost.ParamID { return blendCoatParam(i, 2) }

// BlendParamMixColor returns the mix color parameter of coat i.
func BlendParamMixColor(i int) maxhost.ParamID { return blendCoatParam(i, 3) }

// BlendParamMask returns the mask texture parameter of coat i.
func BlendParamMask(i int) maxhost.ParamID { return blendCoatParam(i, 4) }

func blendCoatParam(coat, offset int) maxhost.ParamID {
	return maxhost.ParamID(4*(coat-1) + offset)
}

func blendDefs(coats int) []maxhost.ParamDef {
	defs := []maxhost.ParamDef{{ID: BlendParamBaseMtl, Name: "base_material", Type: maxhost.TypeMtl}}
	for i := 1; i <= coats; i++ {
		n := strconv.Itoa(i)
		defs = append(defs,
			maxhost.ParamDef{ID: BlendParamCoatMtl(i), Name: "coat_material_" + n, Type: maxhost.TypeMtl},
			maxhost.ParamDef{ID: BlendParamMixAmount(i), Name: "coat_mix_amount_" + n, Type: maxhost.TypeFloat, Default: float32(50), Min: 0, Max: 100},
			maxhost.ParamDef{ID: BlendParamMixColor(i), Name: "coat_mix_color_" + n, Type: maxhost.TypeColor, Default: ms3.Vec{X: 1, Y: 1, Z: 1}},
			maxhost.ParamDef{ID: BlendParamMask(i), Name: "coat_mask_" + n, Type: maxhost.TypeTexmap},
		)
	}
	return defs
}

type blendParams struct {
	// subs holds the base material followed by the coat materials.
	subs    []Mtl
	amounts []float32
	masks   []texmap.Texmap
}

// BlendMtl layers coat materials over a base material. The base and the first
// coat are required; further coats are optional.
type BlendMtl struct {
	adapter[blendParams]
	coats   int
	watched map[AppleseedMtl]bool
}

var _ AppleseedMtl = (*BlendMtl)(nil)

// NewBlendMtl returns a blend material with the given number of coats,
// clamped to 1..MaxBlendCoats.
func NewBlendMtl(name string, coats int) *BlendMtl {
	coats = max(1, min(coats, MaxBlendCoats))
	m := &BlendMtl{coats: coats, watched: make(map[AppleseedMtl]bool)}
	m.init(name, maxhost.NewParamBlock(blendDefs(coats)...))
	return m
}

func (m *BlendMtl) ClassID() maxhost.ClassID { return BlendMtlClassID }
func (m *BlendMtl) NumSubMtls() int          { return 1 + m.coats }
func (m *BlendMtl) Coats() int               { return m.coats }

func (m *BlendMtl) SubMtl(i int) Mtl {
	subs := m.params().subs
	if i < 0 || i >= len(subs) {
		return nil
	}
	return subs[i]
}

func (m *BlendMtl) Update(t maxhost.TimeValue) maxhost.Interval {
	return m.update(t, m.read)
}

func (m *BlendMtl) read(t maxhost.TimeValue, valid *maxhost.Interval) blendParams {
	p := blendParams{
		subs:    []Mtl{mtlParam(m.pb, BlendParamBaseMtl, t, valid)},
		amounts: make([]float32, m.coats),
		masks:   make([]texmap.Texmap, m.coats),
	}
	for i := 1; i <= m.coats; i++ {
		p.subs = append(p.subs, mtlParam(m.pb, BlendParamCoatMtl(i), t, valid))
		p.amounts[i-1] = m.pb.Float(BlendParamMixAmount(i), t, valid)
		p.masks[i-1] = texmapParam(m.pb, BlendParamMask(i), t, valid)
	}
	for _, sub := range p.subs {
		m.watch(sub)
	}
	return p
}

// watch invalidates m whenever the appleseed material sub changes.
func (m *BlendMtl) watch(sub Mtl) {
	asm, ok := sub.(AppleseedMtl)
	if !ok || m.watched[asm] {
		return
	}
	m.watched[asm] = true
	asm.OnChange(m.Invalidate)
}

func (m *BlendMtl) CreateMaterial(b *Builder, name string) *scene.Material {
	if b.UseMaxProceduralMaps() {
		return m.createBuiltinMaterial(b, name)
	}
	return m.createOSLMaterial(b, name)
}

// createBuiltinMaterial builds every sub-material so that their materials and
// textures are exported, and returns an empty generic material: blending has
// no builtin equivalent.
func (m *BlendMtl) createBuiltinMaterial(b *Builder, name string) *scene.Material {
	b.log.Info("blend material has no builtin equivalent", slog.String("name", name))
	for _, sub := range m.params().subs {
		if _, ok := sub.(AppleseedMtl); ok {
			b.BuildUnique(sub)
		}
	}
	return scene.NewGenericMaterial(name, scene.ParamArray{})
}

// createOSLMaterial builds every sub-material, merges their shader groups into
// a new group and appends the blend node combining their closures. A missing
// or incompatible required sub-material, or a sub-material without shader
// group, yields the fallback material.
func (m *BlendMtl) createOSLMaterial(b *Builder, name string) *scene.Material {
	p := m.params()
	var slots []int
	for slot, sub := range p.subs {
		switch {
		case sub == nil && slot <= 1:
			b.Diagnose(fmt.Errorf("%s: slot %d: %w", name, slot, ErrMissingSubMtl))
			return b.Fallback(name)
		case sub == nil:
			continue
		}
		if _, ok := sub.(AppleseedMtl); !ok {
			b.Diagnose(fmt.Errorf("%s: slot %d: %q: %w", name, slot, sub.Name(), ErrIncompatibleMtl))
			return b.Fallback(name)
		}
		slots = append(slots, slot)
	}

	a := b.Assembly()
	g := oslbuild.NewGroup(name + ShaderGroupSuffix)
	surfaces := make([]string, len(slots))
	for i, slot := range slots {
		mat := b.BuildUnique(p.subs[slot])
		sub, ok := a.ShaderGroups.GetByName(mat.Name() + ShaderGroupSuffix)
		if !ok {
			b.Diagnose(fmt.Errorf("%s: %s%s: %w", name, mat.Name(), ShaderGroupSuffix, ErrMissingShaderGroup))
			return b.Fallback(name)
		}
		surface, ok := sub.Surface()
		if !ok {
			b.Diagnose(fmt.Errorf("%s: %s: %w", name, sub.Name(), oslbuild.ErrEmptyLayer))
			return b.Fallback(name)
		}
		if err := g.Merge(sub); err != nil {
			b.Diagnose(fmt.Errorf("%s: %w", name, err))
			return b.Fallback(name)
		}
		surfaces[i] = surface.Layer
	}

	var params []oslbuild.Param
	for i, slot := range slots {
		if err := g.AddConnection(surfaces[i], osllib.ClosureOutput, name, osllib.BlendInput(i)); err != nil {
			b.Diagnose(err)
			return b.Fallback(name)
		}
		if i == 0 {
			continue
		}
		coat := slot - 1
		params = append(params, param(osllib.BlendAmount(i), oslbuild.Percent(p.amounts[coat])))
		if b.sampleable(name, osllib.BlendMask(i), p.masks[coat]) {
			params = append(params, param(osllib.BlendMask(i), oslbuild.Texture(texmap.Path(p.masks[coat]))))
		}
	}
	if err := g.AddShader(osllib.TypeSurface, osllib.BlendMaterial, name, params...); err != nil {
		b.Diagnose(err)
		return b.Fallback(name)
	}
	return b.RegisterShaderGroup(name, g)
}

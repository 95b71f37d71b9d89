package asmax

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/soypat/glgl/math/ms3"
)

const (
	// MaterialSuffix is appended to a host material name to name its renderer material.
	MaterialSuffix = "_mat"
	// ShaderGroupSuffix is appended to a renderer material name to name its shader group.
	ShaderGroupSuffix = "_shader_group"
)

// Builder creates renderer materials of host materials into an assembly.
// It is not safe for concurrent use.
type Builder struct {
	a                 *scene.Assembly
	t                 maxhost.TimeValue
	maxProceduralMaps bool
	log               *slog.Logger
	visiting          map[Mtl]bool
	accumErrs         []error
}

type Option func(*Builder)

// WithTime sets the animation time at which materials are built. Default is 0.
func WithTime(t maxhost.TimeValue) Option {
	return func(b *Builder) { b.t = t }
}

// WithMaxProceduralMaps selects builtin renderer materials sampling host
// textures through texture instances instead of OSL shader groups.
func WithMaxProceduralMaps(enable bool) Option {
	return func(b *Builder) { b.maxProceduralMaps = enable }
}

// WithLogger sets the logger of build diagnostics. A nil logger discards them.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// NewBuilder returns a builder filling the assembly a.
func NewBuilder(a *scene.Assembly, opts ...Option) *Builder {
	b := &Builder{a: a, visiting: make(map[Mtl]bool)}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return b
}

func (b *Builder) Assembly() *scene.Assembly { return b.a }
func (b *Builder) Time() maxhost.TimeValue   { return b.t }

// UseMaxProceduralMaps reports whether builtin materials are built.
func (b *Builder) UseMaxProceduralMaps() bool { return b.maxProceduralMaps }

// Err returns the diagnostics accumulated during the build, if any.
func (b *Builder) Err() error {
	if len(b.accumErrs) == 0 {
		return nil
	}
	return errors.Join(b.accumErrs...)
}

// Diagnose records a non-fatal build failure.
func (b *Builder) Diagnose(err error) {
	b.log.Warn(err.Error())
	b.accumErrs = append(b.accumErrs, err)
}

// Export builds every material in mtls under a unique name and returns the names.
func (b *Builder) Export(mtls ...Mtl) []string {
	names := make([]string, len(mtls))
	for i, mtl := range mtls {
		names[i] = b.BuildUnique(mtl).Name()
	}
	return names
}

// BuildUnique builds mtl under a unique name derived from its host name.
func (b *Builder) BuildUnique(mtl Mtl) *scene.Material {
	base := "material"
	if mtl != nil && mtl.Name() != "" {
		base = mtl.Name()
	}
	return b.BuildMaterial(mtl, b.a.Materials.UniqueName(base+MaterialSuffix))
}

// BuildMaterial creates the renderer material called name of mtl and inserts it
// into the assembly. Materials that cannot be translated, including those
// reached again while being built, become an empty placeholder material.
// If a material called name exists, the collision is diagnosed and the
// existing material is returned.
func (b *Builder) BuildMaterial(mtl Mtl, name string) *scene.Material {
	if err := b.a.Materials.Reserve(name); err != nil {
		b.Diagnose(err)
		m, _ := b.a.Materials.GetByName(name)
		return m
	}
	var m *scene.Material
	asm, ok := mtl.(AppleseedMtl)
	switch {
	case mtl == nil:
		b.Diagnose(fmt.Errorf("%s: %w", name, ErrMissingSubMtl))
	case !ok:
		b.Diagnose(fmt.Errorf("%s: %q %s: %w", name, mtl.Name(), mtl.ClassID(), ErrIncompatibleMtl))
	case b.visiting[mtl]:
		b.Diagnose(fmt.Errorf("%s: %q: %w", name, mtl.Name(), ErrMaterialCycle))
	default:
		b.visiting[mtl] = true
		asm.Update(b.t)
		m = asm.CreateMaterial(b, name)
		delete(b.visiting, mtl)
	}
	if m == nil {
		m = b.Fallback(name)
	}
	if err := b.a.Materials.Insert(m); err != nil {
		b.Diagnose(err)
	}
	b.log.Debug("material built", slog.String("name", name), slog.String("model", m.Model()))
	return m
}

// Fallback returns an empty material called name: an OSL material without a
// shader group, or a generic material without BSDF when building builtin materials.
func (b *Builder) Fallback(name string) *scene.Material {
	if b.maxProceduralMaps {
		return scene.NewGenericMaterial(name, scene.ParamArray{})
	}
	return scene.NewOSLMaterial(name, scene.ParamArray{})
}

// RegisterTexture registers tex in the assembly. See [texmap.Register].
func (b *Builder) RegisterTexture(tex texmap.Texmap, textureParams, instanceParams scene.ParamArray) (string, bool) {
	inst, ok := texmap.Register(b.a, tex, b.t, textureParams, instanceParams)
	if !ok && texmap.Classify(tex) == texmap.KindUnsupported {
		b.Diagnose(fmt.Errorf("%q %s: %w", tex.Name(), tex.ClassID(), ErrUnsupportedTexture))
	}
	return inst, ok
}

// RegisterShaderGroup inserts g into the assembly and returns an OSL material
// called name using it as surface.
func (b *Builder) RegisterShaderGroup(name string, g *oslbuild.Group) *scene.Material {
	if err := b.a.ShaderGroups.Insert(g); err != nil {
		b.Diagnose(fmt.Errorf("%s: %w", name, err))
		return b.Fallback(name)
	}
	if err := oslbuild.Validate(g); err != nil {
		b.log.Debug("shader group failed validation", slog.String("group", g.Name()), slog.Any("err", err))
	}
	params := scene.ParamArray{}.Insert(scene.ParamOSLSurface, g.Name())
	return scene.NewOSLMaterial(name, params)
}

// ColorExpr formats the linear color c as a literal of shader model, sRGB
// encoded for models expecting gamma-encoded colors.
func ColorExpr(model string, c ms3.Vec) oslbuild.Expr {
	if m, ok := osllib.Lookup(model); ok && m.GammaColors {
		return oslbuild.GammaColor(c)
	}
	return oslbuild.Color(c)
}

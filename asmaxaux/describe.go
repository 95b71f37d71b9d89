// Package asmaxaux builds host scenes from YAML scene descriptions and runs
// the export pipeline on them: one-shot exports and watch sessions
// re-exporting whenever a bitmap changes.
package asmaxaux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/appleseedhq/asmax"
	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms3"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateName   = errors.New("duplicate name")
	ErrUnknownType     = errors.New("unknown type")
	ErrUnknownTexture  = errors.New("unknown texture")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnknownParam    = errors.New("unknown parameter")
	ErrInvalidValue    = errors.New("invalid value")
)

// Material types of a scene description.
const (
	TypeMatte   = "matte"
	TypePlastic = "plastic"
	TypeDisney  = "disney"
	TypeBlend   = "blend"
	TypeForeign = "foreign"
)

// Description is a host scene decoded from a scene description.
type Description struct {
	// Textures and Materials are in description order.
	Textures  []texmap.Texmap
	Materials []asmax.Mtl
	// Export lists the materials to export, all materials by default.
	Export []asmax.Mtl
}

// Texture returns the texture called name.
func (d *Description) Texture(name string) (texmap.Texmap, bool) {
	i := slices.IndexFunc(d.Textures, func(t texmap.Texmap) bool { return t.Name() == name })
	if i < 0 {
		return nil, false
	}
	return d.Textures[i], true
}

// Material returns the material called name.
func (d *Description) Material(name string) (asmax.Mtl, bool) {
	i := slices.IndexFunc(d.Materials, func(m asmax.Mtl) bool { return m.Name() == name })
	if i < 0 {
		return nil, false
	}
	return d.Materials[i], true
}

// Bitmaps returns the bitmap textures of d.
func (d *Description) Bitmaps() []*texmap.BitmapTex {
	var bms []*texmap.BitmapTex
	for _, tex := range d.Textures {
		if bt, ok := tex.(*texmap.BitmapTex); ok {
			bms = append(bms, bt)
		}
	}
	return bms
}

// MaterialsUsing returns the appleseed materials with a parameter referencing
// tex at time t.
func (d *Description) MaterialsUsing(tex texmap.Texmap, t maxhost.TimeValue) []asmax.AppleseedMtl {
	var mtls []asmax.AppleseedMtl
	for _, m := range d.Materials {
		asm, ok := m.(asmax.AppleseedMtl)
		if !ok {
			continue
		}
		pb := m.ParamBlock()
		for _, def := range pb.Defs() {
			if def.Type == maxhost.TypeTexmap && pb.Ref(def.ID, t, nil) == tex {
				mtls = append(mtls, asm)
				break
			}
		}
	}
	return mtls
}

type descriptionDoc struct {
	Textures  []textureDoc  `yaml:"textures"`
	Materials []materialDoc `yaml:"materials"`
	Export    []string      `yaml:"export"`
}

type textureDoc struct {
	Name       string      `yaml:"name"`
	Bitmap     string      `yaml:"bitmap"`
	Procedural string      `yaml:"procedural"`
	UV         *uvDoc      `yaml:"uv"`
	Crop       *cropDoc    `yaml:"crop"`
	Multiplier *float32    `yaml:"multiplier"`
	Colors     [][]float32 `yaml:"colors"`
}

type uvDoc struct {
	Offset []float32 `yaml:"offset"`
	Tiling []float32 `yaml:"tiling"`
	// RotationW is in degrees.
	RotationW float32 `yaml:"rotation_w"`
	WrapU     *bool   `yaml:"wrap_u"`
	WrapV     *bool   `yaml:"wrap_v"`
	MirrorU   bool    `yaml:"mirror_u"`
	MirrorV   bool    `yaml:"mirror_v"`
}

type cropDoc struct {
	Mode string  `yaml:"mode"`
	U    float32 `yaml:"u"`
	V    float32 `yaml:"v"`
	W    float32 `yaml:"w"`
	H    float32 `yaml:"h"`
}

type materialDoc struct {
	Name   string               `yaml:"name"`
	Type   string               `yaml:"type"`
	Coats  int                  `yaml:"coats"`
	Class  []uint32             `yaml:"class"`
	Params map[string]yaml.Node `yaml:"params"`
}

type keyDoc struct {
	Frame int       `yaml:"frame"`
	Value yaml.Node `yaml:"value"`
}

// Load decodes the scene description file at path. Bitmap paths are relative
// to the file's directory.
func Load(path string) (*Description, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	d, err := Decode(fp, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Decode reads a YAML scene description. Relative bitmap paths are joined to
// dir. Bitmaps are loaded; a bitmap failing to load is kept without image data
// and exports as an unsupported texture. Errors name the offending field.
func Decode(r io.Reader, dir string) (*Description, error) {
	var doc descriptionDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	d := &Description{}
	for i, td := range doc.Textures {
		tex, err := td.texmap(dir)
		if err != nil {
			return nil, fmt.Errorf("textures[%d]: %w", i, err)
		}
		if _, dup := d.Texture(tex.Name()); dup {
			return nil, fmt.Errorf("textures[%d]: %w %q", i, ErrDuplicateName, tex.Name())
		}
		d.Textures = append(d.Textures, tex)
	}
	// Materials are created first so parameters may reference any of them.
	for i, md := range doc.Materials {
		m, err := md.mtl()
		if err != nil {
			return nil, fmt.Errorf("materials[%d]: %w", i, err)
		}
		if _, dup := d.Material(m.Name()); dup {
			return nil, fmt.Errorf("materials[%d]: %w %q", i, ErrDuplicateName, m.Name())
		}
		d.Materials = append(d.Materials, m)
	}
	for i, md := range doc.Materials {
		if err := d.setParams(d.Materials[i], md.Params); err != nil {
			return nil, fmt.Errorf("materials[%d].params.%w", i, err)
		}
	}
	if doc.Export == nil {
		d.Export = d.Materials
	}
	for i, name := range doc.Export {
		m, ok := d.Material(name)
		if !ok {
			return nil, fmt.Errorf("export[%d]: %w %q", i, ErrUnknownMaterial, name)
		}
		d.Export = append(d.Export, m)
	}
	return d, nil
}

func (td textureDoc) texmap(dir string) (texmap.Texmap, error) {
	switch {
	case td.Bitmap != "" && td.Procedural != "":
		return nil, fmt.Errorf("%w: texture %q is both bitmap and procedural", ErrInvalidValue, td.Name)
	case td.Bitmap != "":
		path := td.Bitmap
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		bt := texmap.NewBitmapTex(td.Name, path)
		if td.UV != nil {
			uv, err := td.UV.uvgen()
			if err != nil {
				return nil, err
			}
			bt.UV = uv
		}
		if td.Crop != nil {
			crop, err := td.Crop.crop()
			if err != nil {
				return nil, err
			}
			bt.Crop = crop
		}
		if td.Multiplier != nil {
			bt.Multiplier = *td.Multiplier
		}
		bt.Load() // A failed load leaves the texture unsupported.
		return bt, nil
	case td.Procedural != "":
		class, ok := texmap.ProceduralClass(td.Procedural)
		if !ok {
			return nil, fmt.Errorf("procedural: %w %q (want one of %s)", ErrUnknownType, td.Procedural, strings.Join(texmap.ProceduralClassNames(), ", "))
		}
		var sampler texmap.Sampler
		if td.Procedural == "checker" {
			colors := [2]ms3.Vec{{}, {X: 1, Y: 1, Z: 1}}
			for i, c := range td.Colors {
				if i >= len(colors) || len(c) != 3 {
					return nil, fmt.Errorf("colors: %w: want two RGB triplets", ErrInvalidValue)
				}
				colors[i] = ms3.Vec{X: c[0], Y: c[1], Z: c[2]}
			}
			sampler = checker(colors[0], colors[1])
		}
		pt := texmap.NewProceduralTex(td.Name, class, sampler)
		if td.UV != nil {
			uv, err := td.UV.uvgen()
			if err != nil {
				return nil, err
			}
			pt.UV = uv
		}
		return pt, nil
	}
	return nil, fmt.Errorf("%w: texture %q has neither bitmap nor procedural", ErrInvalidValue, td.Name)
}

// checker samples a two color checker board with one square per unit UV quadrant.
func checker(c1, c2 ms3.Vec) texmap.Sampler {
	return func(uv ms2.Vec, _ maxhost.TimeValue) ms3.Vec {
		if (int(math32.Floor(2*uv.X))+int(math32.Floor(2*uv.Y)))%2 == 0 {
			return c1
		}
		return c2
	}
}

func (ud uvDoc) uvgen() (texmap.UVGen, error) {
	uv := texmap.DefaultUVGen()
	vec2 := func(field string, v []float32, dst *ms2.Vec) error {
		switch len(v) {
		case 0:
			return nil
		case 2:
			*dst = ms2.Vec{X: v[0], Y: v[1]}
			return nil
		}
		return fmt.Errorf("uv.%s: %w: want 2 values, got %d", field, ErrInvalidValue, len(v))
	}
	if err := vec2("offset", ud.Offset, &uv.Offset); err != nil {
		return uv, err
	}
	if err := vec2("tiling", ud.Tiling, &uv.Tiling); err != nil {
		return uv, err
	}
	uv.RotationW = ud.RotationW * math32.Pi / 180
	if ud.WrapU != nil {
		uv.WrapU = *ud.WrapU
	}
	if ud.WrapV != nil {
		uv.WrapV = *ud.WrapV
	}
	uv.MirrorU = ud.MirrorU
	uv.MirrorV = ud.MirrorV
	return uv, nil
}

func (cd cropDoc) crop() (texmap.Crop, error) {
	c := texmap.Crop{U: cd.U, V: cd.V, W: cd.W, H: cd.H}
	switch cd.Mode {
	case "", "off":
		c.Mode = texmap.CropOff
	case "crop":
		c.Mode = texmap.CropCrop
	case "place":
		c.Mode = texmap.CropPlace
	default:
		return c, fmt.Errorf("crop.mode: %w %q", ErrUnknownType, cd.Mode)
	}
	return c, nil
}

func (md materialDoc) mtl() (asmax.Mtl, error) {
	if md.Name == "" {
		return nil, fmt.Errorf("%w: material without name", ErrInvalidValue)
	}
	switch md.Type {
	case TypeMatte:
		return asmax.NewMatteMtl(md.Name), nil
	case TypePlastic:
		return asmax.NewPlasticMtl(md.Name), nil
	case TypeDisney:
		return asmax.NewDisneyMtl(md.Name), nil
	case TypeBlend:
		coats := md.Coats
		if coats == 0 {
			coats = 1
		}
		return asmax.NewBlendMtl(md.Name, coats), nil
	case TypeForeign:
		var class maxhost.ClassID
		if len(md.Class) > 0 {
			class.A = md.Class[0]
		}
		if len(md.Class) > 1 {
			class.B = md.Class[1]
		}
		if len(md.Params) > 0 {
			return nil, fmt.Errorf("%w: foreign material %q has no parameters", ErrInvalidValue, md.Name)
		}
		return asmax.NewForeignMtl(md.Name, class), nil
	}
	return nil, fmt.Errorf("type: %w %q", ErrUnknownType, md.Type)
}

// setParams sets the parameters of m by name in sorted name order.
func (d *Description) setParams(m asmax.Mtl, params map[string]yaml.Node) error {
	pb := m.ParamBlock()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		node := params[name]
		id, ok := pb.Lookup(name)
		if !ok {
			return fmt.Errorf("%s: %w of %q", name, ErrUnknownParam, m.Name())
		}
		def, _ := pb.Def(id)
		if err := d.setParam(pb, def, &node); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (d *Description) setParam(pb *maxhost.ParamBlock, def maxhost.ParamDef, node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var anim struct {
			Keys []keyDoc `yaml:"keys"`
		}
		if err := node.Decode(&anim); err != nil {
			return err
		}
		keys := make([]maxhost.Key, len(anim.Keys))
		for i, k := range anim.Keys {
			v, err := d.value(def, &k.Value)
			if err != nil {
				return fmt.Errorf("keys[%d]: %w", i, err)
			}
			keys[i] = maxhost.Key{Time: maxhost.Frame(k.Frame), Value: v}
		}
		return pb.SetKeys(def.ID, keys...)
	}
	v, err := d.value(def, node)
	if err != nil {
		return err
	}
	return pb.Set(def.ID, v)
}

// value converts node to a parameter value of def's type. References name a
// texture or material of d; the empty name or null clears them.
func (d *Description) value(def maxhost.ParamDef, node *yaml.Node) (any, error) {
	switch def.Type {
	case maxhost.TypeColor:
		var c []float32
		if err := node.Decode(&c); err != nil {
			return nil, err
		}
		if len(c) != 3 {
			return nil, fmt.Errorf("%w: color wants 3 values, got %d", ErrInvalidValue, len(c))
		}
		return ms3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
	case maxhost.TypeTexmap, maxhost.TypeMtl:
		var name string
		if err := node.Decode(&name); err != nil {
			return nil, err
		}
		if name == "" {
			return nil, nil
		}
		if def.Type == maxhost.TypeTexmap {
			tex, ok := d.Texture(name)
			if !ok {
				return nil, fmt.Errorf("%w %q", ErrUnknownTexture, name)
			}
			return tex, nil
		}
		m, ok := d.Material(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownMaterial, name)
		}
		return m, nil
	case maxhost.TypeFloat:
		var f float32
		err := node.Decode(&f)
		return f, err
	case maxhost.TypeInt:
		var i int
		err := node.Decode(&i)
		return i, err
	case maxhost.TypeBool:
		var b bool
		err := node.Decode(&b)
		return b, err
	}
	var s string
	err := node.Decode(&s)
	return s, err
}

package asmax

import (
	"fmt"
	"log/slog"

	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/soypat/glgl/math/ms3"
)

// UpVector is the color channel of a normal map encoding the up direction.
type UpVector uint8

const (
	UpGreen UpVector = iota
	UpBlue
)

func (up UpVector) String() string {
	if up == UpBlue {
		return "Blue"
	}
	return "Green"
}

// Graph builds the shader group of a single material. The material's surface
// node is named after the material and texture subgraphs feeding input X are
// named <material>_X[_role], so layer names never collide within a material.
type Graph struct {
	b         *Builder
	group     *oslbuild.Group
	node      string
	connected map[string]bool
}

// NewGraph returns an empty graph for the material called material. Its
// shader group is named <material>_shader_group.
func (b *Builder) NewGraph(material string) *Graph {
	return &Graph{
		b:         b,
		group:     oslbuild.NewGroup(material + ShaderGroupSuffix),
		node:      material,
		connected: make(map[string]bool),
	}
}

// Group returns the shader group under construction.
func (gr *Graph) Group() *oslbuild.Group { return gr.group }

// Node returns the layer name of the material's surface node.
func (gr *Graph) Node() string { return gr.node }

// Connected reports whether input of the surface node is driven by a texture.
func (gr *Graph) Connected(input string) bool { return gr.connected[input] }

// ConnectFloat drives the float input with a bitmap texture scaled by multiplier.
// It reports whether a texture subgraph was emitted.
func (gr *Graph) ConnectFloat(input string, tex texmap.Texmap, multiplier float32) bool {
	if !gr.sampleable(input, tex) {
		return false
	}
	layer := gr.node + "_" + input
	ok := gr.addShader(osllib.FloatTexture, layer,
		param("Filename", oslbuild.Texture(texmap.Path(tex))),
		param("Multiplier", oslbuild.Float(multiplier)),
	) && gr.connect(layer, "FloatOut", gr.node, input)
	gr.connected[input] = ok
	return ok
}

// ConnectColor drives the color input with a bitmap texture scaled by multiplier.
// Gamma encoded bitmaps are sampled through the bitmap's UV transform and
// decoded to linear; linear bitmaps are sampled directly.
func (gr *Graph) ConnectColor(input string, tex texmap.Texmap, multiplier ms3.Vec) bool {
	if !gr.sampleable(input, tex) {
		return false
	}
	base := gr.node + "_" + input
	texLayer := base + "_texture"
	texParams := []oslbuild.Param{
		param("Filename", oslbuild.Texture(texmap.Path(tex))),
		param("Multiplier", oslbuild.Color(multiplier)),
	}
	var ok bool
	if texmap.IsLinear(tex) {
		ok = gr.addShader(osllib.ColorTexture, texLayer, texParams...) &&
			gr.connect(texLayer, "ColorOut", gr.node, input)
	} else {
		uvLayer := base + "_uv"
		decodeLayer := base + "_srgb_to_linear"
		ok = gr.addShader(osllib.Map2D, uvLayer, map2DParams(tex)...) &&
			gr.addShader(osllib.ColorTexture, texLayer, texParams...) &&
			gr.addShader(osllib.SRGBToLinear, decodeLayer) &&
			gr.connect(uvLayer, "out_U", texLayer, "U") &&
			gr.connect(uvLayer, "out_V", texLayer, "V") &&
			gr.connect(texLayer, "ColorOut", decodeLayer, "ColorIn") &&
			gr.connect(decodeLayer, "ColorOut", gr.node, input)
	}
	gr.connected[input] = ok
	return ok
}

// ConnectBump drives the normal input with the normal perturbed by a bitmap
// height map. The tangent input is left unconnected.
func (gr *Graph) ConnectBump(normalInput, tangentInput string, tex texmap.Texmap, amount float32) bool {
	if !gr.sampleable(normalInput, tex) {
		return false
	}
	texLayer := gr.node + "_bump_map_texture"
	bumpLayer := gr.node + "_bump_map"
	ok := gr.addShader(osllib.FloatTexture, texLayer, param("Filename", oslbuild.Texture(texmap.Path(tex)))) &&
		gr.addShader(osllib.BumpMap, bumpLayer, param("Amount", oslbuild.Float(amount))) &&
		gr.connect(texLayer, "FloatOut", bumpLayer, "Height") &&
		gr.connect(bumpLayer, "NormalOut", gr.node, normalInput)
	gr.connected[normalInput] = ok
	return ok
}

// ConnectNormal drives the normal and tangent inputs with a decoded bitmap
// normal map whose up direction is stored in channel up.
func (gr *Graph) ConnectNormal(normalInput, tangentInput string, tex texmap.Texmap, up UpVector) bool {
	if !gr.sampleable(normalInput, tex) {
		return false
	}
	texLayer := gr.node + "_normal_map_texture"
	normalLayer := gr.node + "_normal_map"
	ok := gr.addShader(osllib.ColorTexture, texLayer, param("Filename", oslbuild.Texture(texmap.Path(tex)))) &&
		gr.addShader(osllib.NormalMap, normalLayer, param("UpVector", oslbuild.String(up.String()))) &&
		gr.connect(texLayer, "ColorOut", normalLayer, "Color") &&
		gr.connect(normalLayer, "NormalOut", gr.node, normalInput) &&
		gr.connect(normalLayer, "TangentOut", gr.node, tangentInput)
	gr.connected[normalInput] = ok
	gr.connected[tangentInput] = ok
	return ok
}

// Finish declares the surface node of shader model with the literal params of
// its unconnected inputs, registers the shader group and returns the OSL
// material using it. Params of texture driven inputs are dropped.
func (gr *Graph) Finish(model string, params ...oslbuild.Param) *scene.Material {
	var literals []oslbuild.Param
	for _, p := range params {
		if !gr.connected[p.Name] {
			literals = append(literals, p)
		}
	}
	if !gr.addShader(model, gr.node, literals...) {
		return gr.b.Fallback(gr.node)
	}
	return gr.b.RegisterShaderGroup(gr.node, gr.group)
}

func (gr *Graph) sampleable(input string, tex texmap.Texmap) bool {
	return gr.b.sampleable(gr.node, input, tex)
}

// sampleable reports whether tex can be sampled by a shader group. Host
// procedural textures cannot and leave the input to its literal value.
func (b *Builder) sampleable(material, input string, tex texmap.Texmap) bool {
	switch texmap.Classify(tex) {
	case texmap.KindBitmap:
		return true
	case texmap.KindProcedural:
		b.log.Info("procedural texture ignored by shader group",
			slog.String("material", material), slog.String("input", input), slog.String("texture", tex.Name()))
	case texmap.KindUnsupported:
		b.Diagnose(fmt.Errorf("%s.%s: %q %s: %w", material, input, tex.Name(), tex.ClassID(), ErrUnsupportedTexture))
	}
	return false
}

func (gr *Graph) addShader(model, layer string, params ...oslbuild.Param) bool {
	typ := osllib.TypeShader
	if m, ok := osllib.Lookup(model); ok {
		typ = m.Type
	}
	if err := gr.group.AddShader(typ, model, layer, params...); err != nil {
		gr.b.Diagnose(err)
		return false
	}
	return true
}

func (gr *Graph) connect(srcLayer, srcParam, dstLayer, dstParam string) bool {
	if err := gr.group.AddConnection(srcLayer, srcParam, dstLayer, dstParam); err != nil {
		gr.b.Diagnose(err)
		return false
	}
	return true
}

func param(name string, v oslbuild.Expr) oslbuild.Param {
	return oslbuild.Param{Name: name, Value: v}
}

// map2DParams returns the UV transform parameters of a bitmap texture.
func map2DParams(tex texmap.Texmap) []oslbuild.Param {
	bt, ok := tex.(*texmap.BitmapTex)
	if !ok {
		return nil
	}
	uv := bt.UV
	var params []oslbuild.Param
	if uv.WrapU {
		params = append(params, param("in_wrapU", oslbuild.Int(1)))
	} else if uv.MirrorU {
		params = append(params, param("in_mirrorU", oslbuild.Int(1)))
	}
	if uv.WrapV {
		params = append(params, param("in_wrapV", oslbuild.Int(1)))
	} else if uv.MirrorV {
		params = append(params, param("in_mirrorV", oslbuild.Int(1)))
	}
	params = append(params,
		param("in_offsetU", oslbuild.Float(uv.Offset.X)),
		param("in_offsetV", oslbuild.Float(uv.Offset.Y)),
		param("in_tilingU", oslbuild.Float(uv.Tiling.X)),
		param("in_tilingV", oslbuild.Float(uv.Tiling.Y)),
		param("in_rotateW", oslbuild.Float(uv.RotationW)),
	)
	if bt.Crop.Mode != texmap.CropOff {
		params = append(params,
			param("in_cropU", oslbuild.Float(bt.Crop.U)),
			param("in_cropV", oslbuild.Float(bt.Crop.V)),
			param("in_cropW", oslbuild.Float(bt.Crop.W)),
			param("in_cropH", oslbuild.Float(bt.Crop.H)),
		)
	}
	return append(params, param("in_crop_mode", oslbuild.String(bt.Crop.Mode.String())))
}

package scene

import (
	"cogentcore.org/core/base/ordmap"
	"github.com/soypat/glgl/math/ms3"
)

// Material models.
const (
	ModelOSLMaterial     = "osl_material"
	ModelGenericMaterial = "generic_material"
	ModelDisneyMaterial  = "disney_material"
)

// ParamOSLSurface names the shader group of an OSL material.
const ParamOSLSurface = "osl_surface"

// Material is a renderer material.
type Material struct {
	name   string
	model  string
	Params ParamArray
	layers []ParamArray
}

// NewOSLMaterial returns a material whose appearance is computed by the shader
// group named by its "osl_surface" parameter. Without that parameter the
// material renders blank.
func NewOSLMaterial(name string, params ParamArray) *Material {
	return &Material{name: name, model: ModelOSLMaterial, Params: params}
}

// NewGenericMaterial returns a builtin BSDF material.
func NewGenericMaterial(name string, params ParamArray) *Material {
	return &Material{name: name, model: ModelGenericMaterial, Params: params}
}

// NewDisneyMaterial returns a builtin layered Disney material with no layers.
func NewDisneyMaterial(name string, params ParamArray) *Material {
	return &Material{name: name, model: ModelDisneyMaterial, Params: params}
}

func (m *Material) Name() string  { return m.name }
func (m *Material) Model() string { return m.model }

// ShaderGroup returns the name of the shader group referenced by an OSL material.
func (m *Material) ShaderGroup() (string, bool) {
	if m.model != ModelOSLMaterial {
		return "", false
	}
	return m.Params.Get(ParamOSLSurface)
}

// AddLayer appends a layer of SeExpr values to a Disney material.
func (m *Material) AddLayer(values ParamArray) {
	m.layers = append(m.layers, values)
}

// Layers returns the Disney material layers.
func (m *Material) Layers() []ParamArray { return m.layers }

// DefaultDisneyLayer returns the default values of a Disney material layer.
func DefaultDisneyLayer() ParamArray {
	return ParamArray{m: ordmap.Make([]ordmap.KeyValue[string, string]{
		{Key: "layer_name", Value: "layer1"},
		{Key: "layer_number", Value: "0"},
		{Key: "mask", Value: "1.0"},
		{Key: "base_color", Value: "[0.0, 0.0, 0.0]"},
		{Key: "subsurface", Value: "0.0"},
		{Key: "metallic", Value: "0.0"},
		{Key: "specular", Value: "0.0"},
		{Key: "specular_tint", Value: "0.0"},
		{Key: "anisotropic", Value: "0.0"},
		{Key: "roughness", Value: "0.1"},
		{Key: "sheen", Value: "0.0"},
		{Key: "sheen_tint", Value: "0.0"},
		{Key: "clearcoat", Value: "0.0"},
		{Key: "clearcoat_gloss", Value: "1.0"},
	})}
}

// Texture models.
const (
	ModelDiskTexture       = "disk_texture_2d"
	ModelProceduralTexture = "max_procedural_texture"
)

// Color spaces.
const (
	ColorSpaceLinearRGB = "linear_rgb"
	ColorSpaceSRGB      = "srgb"
)

// TextureSource samples a procedural texture at texture coordinates.
type TextureSource interface {
	Color(u, v float32) ms3.Vec
	Scalar(u, v float32) float32
	Alpha(u, v float32) float32
}

// Texture is a source of pixel data: an image file on disk or a procedural source.
type Texture struct {
	name   string
	model  string
	Params ParamArray
	source TextureSource
}

// NewDiskTexture returns a texture read from the file named by the "filename" parameter.
func NewDiskTexture(name string, params ParamArray) *Texture {
	return &Texture{name: name, model: ModelDiskTexture, Params: params}
}

// NewProceduralTexture returns a texture evaluated by src at render time.
func NewProceduralTexture(name string, params ParamArray, src TextureSource) *Texture {
	return &Texture{name: name, model: ModelProceduralTexture, Params: params, source: src}
}

func (t *Texture) Name() string  { return t.name }
func (t *Texture) Model() string { return t.model }

// Source returns the procedural source or nil for disk textures.
func (t *Texture) Source() TextureSource { return t.source }

// TextureInstance binds a texture to placement parameters.
type TextureInstance struct {
	name    string
	texture string
	Params  ParamArray
}

// NewTextureInstance returns an instance of the texture called texture.
func NewTextureInstance(name, texture string, params ParamArray) *TextureInstance {
	return &TextureInstance{name: name, texture: texture, Params: params}
}

func (ti *TextureInstance) Name() string    { return ti.name }
func (ti *TextureInstance) Texture() string { return ti.texture }

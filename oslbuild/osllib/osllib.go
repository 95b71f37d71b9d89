// Package osllib catalogs the builtin OSL shaders the exporter emits together
// with their declared inputs and outputs.
package osllib

import "strconv"

// Shader model names.
const (
	// FloatTexture samples a scalar bitmap:
	//
	//	shader as_max_float_texture(string Filename, float Multiplier, float U, float V, output float FloatOut)
	FloatTexture = "as_max_float_texture"
	// ColorTexture samples a color bitmap:
	//
	//	shader as_max_color_texture(string Filename, color Multiplier, float U, float V, output color ColorOut)
	ColorTexture = "as_max_color_texture"
	// Map2D computes texture coordinates from the host UV generator settings.
	//
	//	shader as_max_map2d(int in_wrapU, ..., string in_crop_mode, output float out_U, output float out_V)
	Map2D = "as_max_map2d"
	// SRGBToLinear decodes an sRGB color:
	//
	//	shader as_max_srgb_to_linear_rgb(color ColorIn, output color ColorOut)
	SRGBToLinear = "as_max_srgb_to_linear_rgb"
	// BumpMap turns a height into a shading normal:
	//
	//	shader as_max_bump_map(float Height, float Amount, output normal NormalOut)
	BumpMap = "as_max_bump_map"
	// NormalMap decodes a tangent space normal map:
	//
	//	shader as_max_normal_map(color Color, string UpVector, output normal NormalOut, output vector TangentOut)
	NormalMap = "as_max_normal_map"
	// BlendMaterial layers coat closures over a base closure.
	//
	//	surface as_max_blend_material(closure color m1, ..., float MixAmount, string MixMask, ..., output closure color Ci)
	BlendMaterial = "as_max_blend_material"
	// DisneyMaterial is the Disney principled BRDF. Its base color expects sRGB values.
	DisneyMaterial = "as_disney_material"
	// Matte is a lambertian closure.
	Matte = "as_matte"
	// Plastic is a dielectric glossy closure over a diffuse substrate.
	Plastic = "as_plastic"
)

// Shader types.
const (
	TypeShader  = "shader"
	TypeSurface = "surface"
)

// ClosureOutput is the outgoing parameter of surface shaders.
const ClosureOutput = "Ci"

// MaxBlendSlots is the number of closure inputs of [BlendMaterial]: one base plus coats.
const MaxBlendSlots = 8

// Model is the declaration of a builtin shader.
type Model struct {
	Name    string
	Type    string
	Inputs  []string
	Outputs []string
	// GammaColors is set for models whose color literals must be sRGB encoded.
	GammaColors bool
}

// HasInput reports whether param is a declared input of m.
func (m Model) HasInput(param string) bool { return contains(m.Inputs, param) }

// HasOutput reports whether param is a declared output of m.
func (m Model) HasOutput(param string) bool { return contains(m.Outputs, param) }

// BlendInput returns the closure input of the blend shader for slot. Slot 0 is the base material.
func BlendInput(slot int) string { return "m" + strconv.Itoa(slot+1) }

// BlendAmount returns the mix amount input of the blend shader for coat slot >= 1.
func BlendAmount(slot int) string { return slotSuffix("MixAmount", slot) }

// BlendMask returns the mask texture input of the blend shader for coat slot >= 1.
func BlendMask(slot int) string { return slotSuffix("MixMask", slot) }

func slotSuffix(base string, slot int) string {
	if slot <= 1 {
		return base
	}
	return base + strconv.Itoa(slot)
}

var models = map[string]Model{}

func init() {
	texInputs := []string{"Filename", "Multiplier", "U", "V"}
	register(Model{Name: FloatTexture, Type: TypeShader, Inputs: texInputs, Outputs: []string{"FloatOut"}})
	register(Model{Name: ColorTexture, Type: TypeShader, Inputs: texInputs, Outputs: []string{"ColorOut"}})
	register(Model{
		Name: Map2D,
		Type: TypeShader,
		Inputs: []string{
			"in_wrapU", "in_wrapV", "in_mirrorU", "in_mirrorV",
			"in_offsetU", "in_offsetV", "in_tilingU", "in_tilingV", "in_rotateW",
			"in_cropU", "in_cropV", "in_cropW", "in_cropH", "in_crop_mode",
		},
		Outputs: []string{"out_U", "out_V"},
	})
	register(Model{Name: SRGBToLinear, Type: TypeShader, Inputs: []string{"ColorIn"}, Outputs: []string{"ColorOut"}})
	register(Model{Name: BumpMap, Type: TypeShader, Inputs: []string{"Height", "Amount"}, Outputs: []string{"NormalOut"}})
	register(Model{Name: NormalMap, Type: TypeShader, Inputs: []string{"Color", "UpVector"}, Outputs: []string{"NormalOut", "TangentOut"}})

	var blendInputs []string
	for slot := 0; slot < MaxBlendSlots; slot++ {
		blendInputs = append(blendInputs, BlendInput(slot))
		if slot > 0 {
			blendInputs = append(blendInputs, BlendAmount(slot), BlendMask(slot))
		}
	}
	register(Model{Name: BlendMaterial, Type: TypeSurface, Inputs: blendInputs, Outputs: []string{ClosureOutput}})
	register(Model{
		Name: DisneyMaterial,
		Type: TypeSurface,
		Inputs: []string{
			"BaseColor", "Metallic", "Specular", "SpecularTint", "Anisotropic",
			"Roughness", "Clearcoat", "ClearcoatGloss", "Normal", "Tn",
		},
		Outputs:     []string{ClosureOutput},
		GammaColors: true,
	})
	register(Model{Name: Matte, Type: TypeSurface, Inputs: []string{"Color", "Normal", "Tn"}, Outputs: []string{ClosureOutput}})
	register(Model{
		Name:    Plastic,
		Type:    TypeSurface,
		Inputs:  []string{"DiffuseColor", "SpecularColor", "Roughness", "Normal", "Tn"},
		Outputs: []string{ClosureOutput},
	})
}

func register(m Model) { models[m.Name] = m }

// Lookup returns the declaration of the builtin shader named name.
func Lookup(name string) (Model, bool) {
	m, ok := models[name]
	return m, ok
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

package texmap

import (
	"path/filepath"
	"strings"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/scene"
	"github.com/soypat/glgl/math/ms3"
)

// Texture parameter names.
const (
	ParamFilename   = "filename"
	ParamColorSpace = "color_space"
)

// InstanceSuffix is appended to a texture name to form its instance name.
const InstanceSuffix = "_inst"

// InferColorSpace returns the color space of an image file judged by its
// extension: linear for OpenEXR, sRGB otherwise.
func InferColorSpace(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".exr") {
		return scene.ColorSpaceLinearRGB
	}
	return scene.ColorSpaceSRGB
}

// Register makes tex available to the assembly as a texture and a texture instance
// and returns the instance name. Both entities are inserted only if absent, so
// registering a texture again returns the existing instance.
//
// Bitmap textures become disk textures of the bitmap file; a missing color space
// parameter is inferred from the file extension. Procedural textures are evaluated
// at t and wrapped in a procedural source, linear by default. Unsupported textures
// and nil register nothing and report false.
func Register(a *scene.Assembly, tex Texmap, t maxhost.TimeValue, textureParams, instanceParams scene.ParamArray) (string, bool) {
	var name string
	switch Classify(tex) {
	case KindBitmap:
		path := Path(tex)
		name = textureName(tex, path)
		if !a.Textures.Contains(name) {
			params := textureParams.Clone().Insert(ParamFilename, path)
			if !params.Has(ParamColorSpace) {
				params = params.Insert(ParamColorSpace, InferColorSpace(path))
			}
			_ = a.Textures.Insert(scene.NewDiskTexture(name, params))
		}
	case KindProcedural:
		name = textureName(tex, "")
		if ev, ok := tex.(Evaluator); ok {
			ev.Update(t)
		}
		if !a.Textures.Contains(name) {
			params := textureParams.Clone()
			if !params.Has(ParamColorSpace) {
				params = params.Insert(ParamColorSpace, scene.ColorSpaceLinearRGB)
			}
			_ = a.Textures.Insert(scene.NewProceduralTexture(name, params, NewProceduralSource(tex)))
		}
	default:
		return "", false
	}
	instName := name + InstanceSuffix
	if !a.TextureInstances.Contains(instName) {
		_ = a.TextureInstances.Insert(scene.NewTextureInstance(instName, name, instanceParams.Clone()))
	}
	return instName, true
}

// ProceduralSource samples a host procedural texture for the renderer.
// Scalar lookups return the luminance of the color; alpha is always 1.
type ProceduralSource struct {
	tex Texmap
}

var _ scene.TextureSource = (*ProceduralSource)(nil)

// NewProceduralSource returns a source bound to the live texture tex.
// Textures the host cannot evaluate sample magenta.
func NewProceduralSource(tex Texmap) *ProceduralSource {
	return &ProceduralSource{tex: tex}
}

func (s *ProceduralSource) Color(u, v float32) ms3.Vec {
	if ev, ok := s.tex.(Evaluator); ok {
		return ev.Sample(u, v)
	}
	return magenta
}

func (s *ProceduralSource) Scalar(u, v float32) float32 {
	return oslbuild.Luminance(s.Color(u, v))
}

func (s *ProceduralSource) Alpha(u, v float32) float32 { return 1 }

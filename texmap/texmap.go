// Package texmap models host texture maps, classifies them by how the renderer
// can sample them and registers them as renderer textures.
package texmap

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
)

// Texmap is a host texture map node.
type Texmap interface {
	Name() string
	ClassID() maxhost.ClassID
}

// BitmapHolder is implemented by texture maps that may hold decoded image data.
type BitmapHolder interface {
	Texmap
	// Bitmap returns the loaded image or nil if no image data is loaded.
	Bitmap() *Bitmap
}

// Evaluator is implemented by texture maps the host evaluates itself.
type Evaluator interface {
	Texmap
	// Update evaluates the texture parameters at time t.
	Update(t maxhost.TimeValue)
	// Sample returns the linear RGB color at texture coordinates (u, v).
	Sample(u, v float32) ms3.Vec
}

// Kind is the result of texture classification.
type Kind uint8

const (
	KindNone Kind = iota
	KindBitmap
	KindProcedural
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBitmap:
		return "bitmap"
	case KindProcedural:
		return "procedural"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Classify determines how the renderer can sample tex:
//   - KindNone if tex is nil.
//   - KindBitmap if tex is a bitmap texture holding loaded image data.
//   - KindProcedural if tex is one of the host procedural textures the renderer
//     can evaluate through the host.
//   - KindUnsupported otherwise, including bitmap textures without image data.
func Classify(tex Texmap) Kind {
	if tex == nil {
		return KindNone
	}
	id := tex.ClassID()
	if id == BitmapClassID {
		if bh, ok := tex.(BitmapHolder); ok && bh.Bitmap() != nil {
			return KindBitmap
		}
		return KindUnsupported
	}
	if isSupportedProcedural(id) {
		return KindProcedural
	}
	return KindUnsupported
}

// Path returns the image file path of a bitmap texture or "" for any other kind.
func Path(tex Texmap) string {
	if Classify(tex) != KindBitmap {
		return ""
	}
	return tex.(BitmapHolder).Bitmap().Path
}

// IsLinear reports whether tex is a bitmap texture storing linear color values.
func IsLinear(tex Texmap) bool {
	if Classify(tex) != KindBitmap {
		return false
	}
	return tex.(BitmapHolder).Bitmap().Linear
}

// UVGen holds the standard UV generator settings of a texture.
type UVGen struct {
	Offset ms2.Vec
	Tiling ms2.Vec
	// RotationW is the W rotation angle in radians.
	RotationW float32

	WrapU, WrapV     bool
	MirrorU, MirrorV bool
}

// DefaultUVGen returns the host's default generator: unit tiling, wrapping in U and V.
func DefaultUVGen() UVGen {
	return UVGen{Tiling: ms2.Vec{X: 1, Y: 1}, WrapU: true, WrapV: true}
}

// Transform maps texture coordinates through the generator: rotation about the
// texture center, offset, tiling, then wrap, mirror or clamp to [0,1].
func (g UVGen) Transform(uv ms2.Vec) ms2.Vec {
	center := ms2.Vec{X: 0.5, Y: 0.5}
	p := ms2.Sub(uv, center)
	if g.RotationW != 0 {
		p = ms2.MulMatVec(ms2.RotationMat2(g.RotationW), p)
	}
	p = ms2.Add(p, center)
	p = ms2.Sub(p, g.Offset)
	p = ms2.MulElem(p, g.Tiling)
	return ms2.Vec{X: tile(p.X, g.WrapU, g.MirrorU), Y: tile(p.Y, g.WrapV, g.MirrorV)}
}

func tile(x float32, wrap, mirror bool) float32 {
	switch {
	case wrap:
		return x - math32.Floor(x)
	case mirror:
		m := x - 2*math32.Floor(x/2)
		if m > 1 {
			m = 2 - m
		}
		return m
	}
	return ms1.Clamp(x, 0, 1)
}

// CropMode selects how a bitmap's crop region applies.
type CropMode uint8

const (
	CropOff CropMode = iota
	// CropCrop samples only the region, stretched over the whole texture.
	CropCrop
	// CropPlace places the full image inside the region.
	CropPlace
)

func (m CropMode) String() string {
	switch m {
	case CropCrop:
		return "crop"
	case CropPlace:
		return "place"
	}
	return "off"
}

// Crop is the optional crop/place region of a bitmap texture in normalized coordinates.
type Crop struct {
	Mode       CropMode
	U, V, W, H float32
}

// BitmapTex is the host's bitmap texture.
type BitmapTex struct {
	name string
	Path string
	UV   UVGen
	Crop Crop
	// Multiplier is the texture output amount.
	Multiplier float32
	bitmap     *Bitmap
}

var _ BitmapHolder = (*BitmapTex)(nil)

// NewBitmapTex returns a bitmap texture of the image at path. No image data is
// loaded until Load or SetBitmap is called.
func NewBitmapTex(name, path string) *BitmapTex {
	return &BitmapTex{
		name:       name,
		Path:       path,
		UV:         DefaultUVGen(),
		Crop:       Crop{W: 1, H: 1},
		Multiplier: 1,
	}
}

func (bt *BitmapTex) Name() string             { return bt.name }
func (bt *BitmapTex) ClassID() maxhost.ClassID { return BitmapClassID }
func (bt *BitmapTex) Bitmap() *Bitmap          { return bt.bitmap }

// SetBitmap sets the loaded image data. A nil bitmap unloads it.
func (bt *BitmapTex) SetBitmap(b *Bitmap) { bt.bitmap = b }

// Load reads the image header of bt.Path. On failure no image data is held.
func (bt *BitmapTex) Load() error {
	b, err := LoadBitmap(bt.Path)
	bt.bitmap = b
	return err
}

// Sampler is the host's evaluation callback of a procedural texture.
type Sampler func(uv ms2.Vec, t maxhost.TimeValue) ms3.Vec

var magenta = ms3.Vec{X: 1, Y: 0, Z: 1}

// ProceduralTex is a host procedural texture sampled through the host.
type ProceduralTex struct {
	name   string
	class  maxhost.ClassID
	UV     UVGen
	sample Sampler
	time   maxhost.TimeValue
}

var _ Evaluator = (*ProceduralTex)(nil)

// NewProceduralTex returns a procedural texture of the given host class sampled by s.
// A nil sampler samples magenta.
func NewProceduralTex(name string, class maxhost.ClassID, s Sampler) *ProceduralTex {
	return &ProceduralTex{name: name, class: class, UV: DefaultUVGen(), sample: s}
}

func (pt *ProceduralTex) Name() string             { return pt.name }
func (pt *ProceduralTex) ClassID() maxhost.ClassID { return pt.class }

// Update sets the time at which the texture is evaluated.
func (pt *ProceduralTex) Update(t maxhost.TimeValue) { pt.time = t }

// Time returns the time set by the last Update.
func (pt *ProceduralTex) Time() maxhost.TimeValue { return pt.time }

// Sample returns the host evaluation of the texture at (u, v).
func (pt *ProceduralTex) Sample(u, v float32) ms3.Vec {
	if pt.sample == nil {
		return magenta
	}
	return pt.sample(pt.UV.Transform(ms2.Vec{X: u, Y: v}), pt.time)
}

// textureName returns the renderer texture name of tex: its host name, else
// the base file name without extension.
func textureName(tex Texmap, path string) string {
	if name := tex.Name(); name != "" {
		return name
	}
	if path != "" {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	id := tex.ClassID()
	return "texture_" + strconv.FormatUint(uint64(id.A), 16) + "_" + strconv.FormatUint(uint64(id.B), 16)
}

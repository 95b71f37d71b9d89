package texmap_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/math/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

type foreignTex struct {
	name string
	id   maxhost.ClassID
}

func (f foreignTex) Name() string             { return f.name }
func (f foreignTex) ClassID() maxhost.ClassID { return f.id }

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// writeEXR writes an uncompressed single channel half float scanline image.
func writeEXR(t *testing.T, dir, name string, w, h int32) string {
	t.Helper()
	var buf bytes.Buffer
	le := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	attr := func(name, typ string, size int32) {
		buf.WriteString(name + "\x00" + typ + "\x00")
		le(size)
	}
	buf.Write([]byte{0x76, 0x2f, 0x31, 0x01, 2, 0, 0, 0})
	attr("channels", "chlist", 18+1)
	buf.WriteString("Y\x00")
	le(int32(1)) // half
	buf.Write([]byte{0, 0, 0, 0})
	le([2]int32{1, 1})
	buf.WriteByte(0)
	attr("compression", "compression", 1)
	buf.WriteByte(0)
	attr("dataWindow", "box2i", 16)
	le([4]int32{0, 0, w - 1, h - 1})
	attr("displayWindow", "box2i", 16)
	le([4]int32{0, 0, w - 1, h - 1})
	attr("lineOrder", "lineOrder", 1)
	buf.WriteByte(0)
	attr("pixelAspectRatio", "float", 4)
	le(float32(1))
	attr("screenWindowCenter", "v2f", 8)
	le([2]float32{0, 0})
	attr("screenWindowWidth", "float", 4)
	le(float32(1))
	buf.WriteByte(0)

	lineSize := 8 + 2*int64(w)
	first := int64(buf.Len()) + 8*int64(h)
	for y := int64(0); y < int64(h); y++ {
		le(uint64(first + y*lineSize))
	}
	for y := int32(0); y < h; y++ {
		le([2]int32{y, 2 * w})
		buf.Write(make([]byte, 2*w))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestClassify(t *testing.T) {
	loaded := texmap.NewBitmapTex("loaded", "wood.png")
	loaded.SetBitmap(&texmap.Bitmap{Path: "wood.png", Width: 4, Height: 4})
	checker, _ := texmap.ProceduralClass("checker")
	tiles, _ := texmap.ProceduralClass("tiles")
	tests := []struct {
		tex  texmap.Texmap
		want texmap.Kind
	}{
		{nil, texmap.KindNone},
		{texmap.NewBitmapTex("unloaded", "wood.png"), texmap.KindUnsupported},
		{loaded, texmap.KindBitmap},
		{foreignTex{id: texmap.BitmapClassID}, texmap.KindUnsupported},
		{texmap.NewProceduralTex("checker", checker, nil), texmap.KindProcedural},
		{foreignTex{id: maxhost.ClassID{A: checker.A, B: 0x1234}}, texmap.KindProcedural},
		{foreignTex{id: tiles}, texmap.KindProcedural},
		{foreignTex{id: maxhost.ClassID{A: tiles.A}}, texmap.KindUnsupported},
		{foreignTex{id: maxhost.ClassID{A: 0xdead, B: 0xbeef}}, texmap.KindUnsupported},
	}
	for i, test := range tests {
		got := texmap.Classify(test.tex)
		if got != test.want {
			t.Errorf("case %d: want %s, got %s", i, test.want, got)
		}
	}
	assert.Equal(t, "wood.png", texmap.Path(loaded))
	assert.Equal(t, "", texmap.Path(texmap.NewBitmapTex("unloaded", "wood.png")))
	assert.Contains(t, texmap.ProceduralClassNames(), "gradient_ramp")
}

func TestLoadBitmap(t *testing.T) {
	dir := t.TempDir()
	pngPath := writePNG(t, dir, "wood.png", 8, 4)
	b, err := texmap.LoadBitmap(pngPath)
	require.NoError(t, err)
	assert.Equal(t, texmap.Bitmap{Path: pngPath, Format: "png", Width: 8, Height: 4}, *b)

	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, image.NewRGBA(image.Rect(0, 0, 3, 5))))
	bmpPath := filepath.Join(dir, "stone.bmp")
	require.NoError(t, os.WriteFile(bmpPath, bmpBuf.Bytes(), 0o644))
	b, err = texmap.LoadBitmap(bmpPath)
	require.NoError(t, err)
	assert.Equal(t, "bmp", b.Format)
	assert.Equal(t, 3, b.Width)
	assert.False(t, b.Linear)

	exrPath := writeEXR(t, dir, "sky.exr", 64, 32)
	b, err = texmap.LoadBitmap(exrPath)
	require.NoError(t, err)
	assert.Equal(t, "exr", b.Format)
	assert.Equal(t, 64, b.Width)
	assert.Equal(t, 32, b.Height)
	assert.True(t, b.Linear)

	broken := filepath.Join(dir, "broken.exr")
	require.NoError(t, os.WriteFile(broken, []byte{0x76, 0x2f, 0x31, 0x01, 2, 0, 0, 0}, 0o644))
	_, err = texmap.LoadBitmap(broken)
	assert.ErrorIs(t, err, texmap.ErrUnsupportedImage)

	hdrPath := filepath.Join(dir, "studio.hdr")
	require.NoError(t, os.WriteFile(hdrPath, []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 16 +X 48\n"), 0o644))
	b, err = texmap.LoadBitmap(hdrPath)
	require.NoError(t, err)
	assert.Equal(t, 48, b.Width)
	assert.Equal(t, 16, b.Height)
	assert.True(t, b.Linear)

	txtPath := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(txtPath, []byte("not an image at all"), 0o644))
	_, err = texmap.LoadBitmap(txtPath)
	assert.ErrorIs(t, err, texmap.ErrUnsupportedImage)

	tex := texmap.NewBitmapTex("missing", filepath.Join(dir, "missing.png"))
	assert.Error(t, tex.Load())
	assert.Equal(t, texmap.KindUnsupported, texmap.Classify(tex))
}

func TestRegisterBitmap(t *testing.T) {
	dir := t.TempDir()
	tex := texmap.NewBitmapTex("Wood", writePNG(t, dir, "wood.png", 2, 2))
	require.NoError(t, tex.Load())
	a := scene.NewAssembly("assembly")

	name, ok := texmap.Register(a, tex, 0, scene.ParamArray{}, scene.ParamArray{})
	require.True(t, ok)
	assert.Equal(t, "Wood_inst", name)
	again, ok := texmap.Register(a, tex, 0, scene.ParamArray{}, scene.ParamArray{})
	require.True(t, ok)
	assert.Equal(t, name, again)
	assert.Equal(t, 1, a.Textures.Len())
	assert.Equal(t, 1, a.TextureInstances.Len())

	texture, ok := a.Textures.GetByName("Wood")
	require.True(t, ok)
	assert.Equal(t, scene.ModelDiskTexture, texture.Model())
	cs, _ := texture.Params.Get(texmap.ParamColorSpace)
	assert.Equal(t, scene.ColorSpaceSRGB, cs)
	inst, _ := a.TextureInstances.GetByName(name)
	assert.Equal(t, "Wood", inst.Texture())
}

func TestRegisterColorSpace(t *testing.T) {
	dir := t.TempDir()
	a := scene.NewAssembly("assembly")
	sky := texmap.NewBitmapTex("", writeEXR(t, dir, "Sky.EXR", 4, 4))
	require.NoError(t, sky.Load())
	name, ok := texmap.Register(a, sky, 0, scene.ParamArray{}, scene.ParamArray{})
	require.True(t, ok)
	assert.Equal(t, "Sky_inst", name, "unnamed textures are named after their file")
	texture, _ := a.Textures.GetByName("Sky")
	cs, _ := texture.Params.Get(texmap.ParamColorSpace)
	assert.Equal(t, scene.ColorSpaceLinearRGB, cs)

	forced := texmap.NewBitmapTex("Forced", writePNG(t, dir, "forced.png", 1, 1))
	require.NoError(t, forced.Load())
	_, ok = texmap.Register(a, forced, 0, scene.ParamArray{}.Insert(texmap.ParamColorSpace, scene.ColorSpaceLinearRGB), scene.ParamArray{})
	require.True(t, ok)
	texture, _ = a.Textures.GetByName("Forced")
	cs, _ = texture.Params.Get(texmap.ParamColorSpace)
	assert.Equal(t, scene.ColorSpaceLinearRGB, cs, "explicit color space must be kept")
}

func TestRegisterProcedural(t *testing.T) {
	checker, _ := texmap.ProceduralClass("checker")
	red := ms3.Vec{X: 1}
	var sampledAt maxhost.TimeValue
	tex := texmap.NewProceduralTex("Checker", checker, func(uv ms2.Vec, t maxhost.TimeValue) ms3.Vec {
		sampledAt = t
		return red
	})
	a := scene.NewAssembly("assembly")
	name, ok := texmap.Register(a, tex, maxhost.Frame(3), scene.ParamArray{}, scene.ParamArray{})
	require.True(t, ok)
	assert.Equal(t, "Checker_inst", name)
	assert.Equal(t, maxhost.Frame(3), tex.Time(), "registration evaluates the texture at the export time")

	texture, ok := a.Textures.GetByName("Checker")
	require.True(t, ok)
	assert.Equal(t, scene.ModelProceduralTexture, texture.Model())
	cs, _ := texture.Params.Get(texmap.ParamColorSpace)
	assert.Equal(t, scene.ColorSpaceLinearRGB, cs)
	src := texture.Source()
	require.NotNil(t, src)
	assert.Equal(t, red, src.Color(0.5, 0.5))
	assert.Equal(t, maxhost.Frame(3), sampledAt)
	assert.InDelta(t, 0.2126, src.Scalar(0.5, 0.5), 1e-6)
	assert.Equal(t, float32(1), src.Alpha(0.5, 0.5))

	magenta := texmap.NewProceduralSource(foreignTex{id: checker}).Color(0, 0)
	assert.Equal(t, ms3.Vec{X: 1, Z: 1}, magenta)
}

func TestRegisterUnsupported(t *testing.T) {
	a := scene.NewAssembly("assembly")
	for _, tex := range []texmap.Texmap{nil, texmap.NewBitmapTex("unloaded", "x.png"), foreignTex{name: "falloff", id: maxhost.ClassID{A: 0x6ec3730c}}} {
		name, ok := texmap.Register(a, tex, 0, scene.ParamArray{}, scene.ParamArray{})
		assert.False(t, ok)
		assert.Empty(t, name)
	}
	assert.Zero(t, a.Textures.Len())
	assert.Zero(t, a.TextureInstances.Len())
}

func TestUVGenTransform(t *testing.T) {
	g := texmap.DefaultUVGen()
	got := g.Transform(ms2.Vec{X: 0.25, Y: 0.75})
	assert.InDelta(t, 0.25, got.X, 1e-6)
	assert.InDelta(t, 0.75, got.Y, 1e-6)

	g.Tiling = ms2.Vec{X: 2, Y: 2}
	got = g.Transform(ms2.Vec{X: 0.75, Y: 0.25})
	assert.InDelta(t, 0.5, got.X, 1e-6, "tiled coordinates wrap")
	assert.InDelta(t, 0.5, got.Y, 1e-6)

	g.WrapU, g.MirrorU = false, true
	got = g.Transform(ms2.Vec{X: 0.75, Y: 0.25})
	assert.InDelta(t, 0.5, got.X, 1e-6, "mirrored 1.5 folds to 0.5")

	g.MirrorU = false
	got = g.Transform(ms2.Vec{X: 0.75, Y: 0.25})
	assert.InDelta(t, 1, got.X, 1e-6, "neither wrap nor mirror clamps")
}

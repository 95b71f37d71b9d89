package asmaxaux_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/appleseedhq/asmax"
	"github.com/appleseedhq/asmax/asmaxaux"
	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/settings"
	"github.com/appleseedhq/asmax/texmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const woodVarnish = `
textures:
  - name: WoodTex
    bitmap: wood.png
    uv: {tiling: [2, 2], mirror_u: true, wrap_u: false}
    crop: {mode: place, u: 0.25, v: 0.25, w: 0.5, h: 0.5}
  - name: Checker
    procedural: checker
    colors: [[1, 0, 0], [0, 0, 1]]
materials:
  - name: Wood
    type: matte
    params:
      color_texmap: WoodTex
  - name: Varnish
    type: plastic
    params:
      roughness: 10
      specular_color: [0.9, 0.9, 0.9]
  - name: Finish
    type: blend
    params:
      base_material: Wood
      coat_material_1: Varnish
      coat_mix_amount_1: 50
  - name: Pulse
    type: disney
    params:
      metallic:
        keys:
          - {frame: 0, value: 0}
          - {frame: 10, value: 100}
  - name: Standard
    type: foreign
    class: [2, 0]
export: [Finish, Pulse, Standard]
`

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o666))
}

func loadWoodVarnish(t *testing.T) (*asmaxaux.Description, string) {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "wood.png"), 8, 4)
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(woodVarnish), 0o666))
	desc, err := asmaxaux.Load(path)
	require.NoError(t, err)
	return desc, dir
}

func TestDecode(t *testing.T) {
	desc, dir := loadWoodVarnish(t)
	require.Len(t, desc.Textures, 2)
	require.Len(t, desc.Materials, 5)

	wood, ok := desc.Texture("WoodTex")
	require.True(t, ok)
	bt := wood.(*texmap.BitmapTex)
	assert.Equal(t, filepath.Join(dir, "wood.png"), bt.Path)
	assert.Equal(t, texmap.KindBitmap, texmap.Classify(bt))
	assert.Equal(t, 8, bt.Bitmap().Width)
	assert.True(t, bt.UV.MirrorU)
	assert.False(t, bt.UV.WrapU)
	assert.True(t, bt.UV.WrapV)
	assert.Equal(t, float32(2), bt.UV.Tiling.X)
	assert.Equal(t, texmap.CropPlace, bt.Crop.Mode)

	checker, _ := desc.Texture("Checker")
	assert.Equal(t, texmap.KindProcedural, texmap.Classify(checker))
	src := texmap.NewProceduralSource(checker)
	assert.Equal(t, float32(1), src.Color(0.1, 0.1).X)
	assert.Equal(t, float32(1), src.Color(0.6, 0.1).Z)

	finish, ok := desc.Material("Finish")
	require.True(t, ok)
	blend := finish.(*asmax.BlendMtl)
	blend.Update(0)
	base, _ := desc.Material("Wood")
	assert.Same(t, base, blend.SubMtl(0))

	pulse, _ := desc.Material("Pulse")
	assert.Equal(t, maxhost.Instant(maxhost.Frame(5)), pulse.(asmax.AppleseedMtl).Update(maxhost.Frame(5)))

	var exported []string
	for _, m := range desc.Export {
		exported = append(exported, m.Name())
	}
	assert.Equal(t, []string{"Finish", "Pulse", "Standard"}, exported)

	users := desc.MaterialsUsing(wood, 0)
	require.Len(t, users, 1)
	assert.Equal(t, "Wood", users[0].Name())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		field   string
	}{
		{"unknown type", "materials: [{name: A, type: velvet}]", asmaxaux.ErrUnknownType, "materials[0]"},
		{"duplicate", "materials: [{name: A, type: matte}, {name: A, type: plastic}]", asmaxaux.ErrDuplicateName, "materials[1]"},
		{"unknown param", "materials: [{name: A, type: matte, params: {shininess: 1}}]", asmaxaux.ErrUnknownParam, "materials[0].params.shininess"},
		{"unknown texture", "materials: [{name: A, type: matte, params: {color_texmap: Nope}}]", asmaxaux.ErrUnknownTexture, "color_texmap"},
		{"unknown material", "materials: [{name: B, type: blend, params: {base_material: Nope}}]", asmaxaux.ErrUnknownMaterial, "base_material"},
		{"bad color", "materials: [{name: A, type: matte, params: {color: [1, 2]}}]", asmaxaux.ErrInvalidValue, "color"},
		{"unknown procedural", "textures: [{name: T, procedural: plasma}]", asmaxaux.ErrUnknownType, "textures[0]"},
		{"no source", "textures: [{name: T}]", asmaxaux.ErrInvalidValue, "textures[0]"},
		{"unknown export", "materials: [{name: A, type: matte}]\nexport: [B]", asmaxaux.ErrUnknownMaterial, "export[0]"},
		{"foreign params", "materials: [{name: A, type: foreign, params: {color: [1, 1, 1]}}]", asmaxaux.ErrInvalidValue, "materials[0]"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := asmaxaux.Decode(strings.NewReader(test.yaml), "")
			require.ErrorIs(t, err, test.wantErr)
			assert.Contains(t, err.Error(), test.field)
		})
	}
	_, err := asmaxaux.Decode(strings.NewReader("materials: [{name: A, type: matte, colour: 1}]"), "")
	assert.Error(t, err, "unknown fields are rejected")
}

func TestDecodeMissingBitmap(t *testing.T) {
	desc, err := asmaxaux.Decode(strings.NewReader(`
textures: [{name: Gone, bitmap: gone.png}]
materials: [{name: A, type: matte, params: {color_texmap: Gone}}]
`), t.TempDir())
	require.NoError(t, err)
	a, err := asmaxaux.Export(asmaxaux.ExportConfig{Settings: settings.Default()}, desc)
	assert.ErrorIs(t, err, asmax.ErrUnsupportedTexture)
	assert.True(t, a.Materials.Contains("A_mat"))
}

func TestExport(t *testing.T) {
	desc, _ := loadWoodVarnish(t)
	a, err := asmaxaux.Export(asmaxaux.ExportConfig{
		Settings: settings.Default(),
		Time:     maxhost.Frame(5),
		Strict:   true,
	}, desc)
	assert.ErrorIs(t, err, asmax.ErrIncompatibleMtl, "foreign materials are diagnosed")

	assert.Equal(t, []string{"Wood_mat", "Varnish_mat", "Finish_mat", "Pulse_mat", "Standard_mat"}, a.Materials.Names())
	g, ok := a.ShaderGroups.GetByName("Finish_mat_shader_group")
	require.True(t, ok)
	wood, _ := a.ShaderGroups.GetByName("Wood_mat_shader_group")
	varnish, _ := a.ShaderGroups.GetByName("Varnish_mat_shader_group")
	assert.Equal(t, wood.NumShaders()+varnish.NumShaders()+1, g.NumShaders())
	assert.Equal(t, wood.NumConnections()+varnish.NumConnections()+2, g.NumConnections())
	assert.Greater(t, wood.NumShaders(), 1, "the wood color is textured")

	pulse, _ := a.ShaderGroups.GetByName("Pulse_mat_shader_group")
	surface, _ := pulse.Surface()
	metallic, _ := surface.Params.Get("Metallic")
	assert.Equal(t, "float 0.5", metallic.String())

	var buf bytes.Buffer
	require.NoError(t, a.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "Finish_mat_shader_group")
}

func TestExportBuiltin(t *testing.T) {
	desc, _ := loadWoodVarnish(t)
	cfg := asmaxaux.ExportConfig{Settings: settings.Default()}
	cfg.Settings.UseMaxProceduralMaps = true
	a, _ := asmaxaux.Export(cfg, desc)
	assert.Zero(t, a.ShaderGroups.Len())
	wood, ok := a.Materials.GetByName("Wood_mat")
	require.True(t, ok)
	assert.Equal(t, scene.ModelGenericMaterial, wood.Model())
	reflectance, _ := wood.Params.Get("reflectance")
	assert.Equal(t, "WoodTex_inst", reflectance)
	assert.True(t, a.Textures.Contains("WoodTex"))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	bitmap := filepath.Join(dir, "metal.png")
	writePNG(t, bitmap, 16, 16)
	desc, err := asmaxaux.Decode(strings.NewReader(`
textures: [{name: Metal, bitmap: metal.png}]
materials: [{name: Chrome, type: disney, params: {metallic: 100, metallic_texmap: Metal}}]
`), dir)
	require.NoError(t, err)

	cfg := asmaxaux.ExportConfig{Settings: settings.Default()}
	cfg.Settings.UseMaxProceduralMaps = true
	exports := make(chan *scene.Assembly, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- asmaxaux.Watch(ctx, cfg, desc, func(a *scene.Assembly, err error) {
			select {
			case exports <- a:
			default:
			}
		})
	}()

	metallic := func(a *scene.Assembly) string {
		m, ok := a.Materials.GetByName("Chrome_mat")
		require.True(t, ok)
		require.Len(t, m.Layers(), 1)
		v, _ := m.Layers()[0].Get("metallic")
		return v
	}
	// Editors may write a bitmap in several steps, each reported.
	waitFor := func(lookup string) {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case a := <-exports:
				if strings.Contains(metallic(a), lookup) {
					return
				}
			case <-timeout:
				t.Fatalf("no export with %q", lookup)
			}
		}
	}
	waitFor("$u % 16, $v % 16")

	writePNG(t, bitmap, 32, 8)
	waitFor("$u % 32, $v % 8")

	cancel()
	require.NoError(t, <-done)
}

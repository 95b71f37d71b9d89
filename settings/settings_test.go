package settings_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/appleseedhq/asmax/logtarget"
	"github.com/appleseedhq/asmax/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := settings.Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 16, s.PixelSamples)
	assert.Equal(t, "blackman-harris", s.PixelFilter)
	assert.True(t, s.GI)
	assert.False(t, s.UseMaxProceduralMaps)
	assert.True(t, s.Renders())
	assert.False(t, s.SavesProject())
	assert.Equal(t, logtarget.OpenErrors, s.OpenMode())
}

func TestDecodePartial(t *testing.T) {
	s, err := settings.Decode(strings.NewReader(`
pixel_samples = 64
pixel_filter = "gaussian"
use_max_procedural_maps = true
log_open_mode = "always"
`))
	require.NoError(t, err)
	want := settings.Default()
	want.PixelSamples = 64
	want.PixelFilter = "gaussian"
	want.UseMaxProceduralMaps = true
	want.LogOpenMode = "always"
	assert.Equal(t, want, s)
	assert.Equal(t, logtarget.OpenAlways, s.OpenMode())
}

func TestDecodeUnknownKey(t *testing.T) {
	_, err := settings.Decode(strings.NewReader("pixel_samples = 4\nsamples_per_pixel = 4\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, settings.ErrInvalid)
	assert.Contains(t, err.Error(), "samples_per_pixel")
}

func TestSaveLoad(t *testing.T) {
	s := settings.Default()
	s.Bounces = 3
	s.BackgroundAlpha = 0.5
	s.OutputMode = settings.OutputSaveProjectAndRender
	s.ProjectFilePath = "scene.appleseed"
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, s.Save(path))

	got, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	assert.Contains(t, buf.String(), "output_mode")
	assert.Contains(t, buf.String(), "save-project-and-render")
}

func TestLoadMissing(t *testing.T) {
	_, err := settings.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*settings.Settings)
		field  string
	}{
		{"samples", func(s *settings.Settings) { s.PixelSamples = 0 }, "pixel_samples"},
		{"passes", func(s *settings.Settings) { s.Passes = 0 }, "passes"},
		{"tile", func(s *settings.Settings) { s.TileSize = -1 }, "tile_size"},
		{"filter", func(s *settings.Settings) { s.PixelFilter = "sinc" }, "pixel_filter"},
		{"filter size", func(s *settings.Settings) { s.PixelFilterSize = 0 }, "pixel_filter_size"},
		{"bounces", func(s *settings.Settings) { s.Bounces = -1 }, "bounces"},
		{"alpha", func(s *settings.Settings) { s.BackgroundAlpha = 1.5 }, "background_alpha"},
		{"scale", func(s *settings.Settings) { s.ScaleMultiplier = 0 }, "scale_multiplier"},
		{"output", func(s *settings.Settings) { s.OutputMode = "preview" }, "output_mode"},
		{"log mode", func(s *settings.Settings) { s.LogOpenMode = "sometimes" }, "log_open_mode"},
		{"project path", func(s *settings.Settings) {
			s.OutputMode = settings.OutputSaveProjectOnly
			s.ProjectFilePath = "scene.txt"
		}, "project_file_path"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := settings.Default()
			test.modify(&s)
			err := s.Validate()
			require.ErrorIs(t, err, settings.ErrInvalid)
			assert.Contains(t, err.Error(), test.field)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ path, want string }{
		{"", ""},
		{"scene", "scene.appleseed"},
		{"dir/scene.txt", "dir/scene.appleseed"},
		{"scene.APPLESEED", "scene.APPLESEED"},
	}
	for _, test := range tests {
		s := settings.Default()
		s.OutputMode = settings.OutputSaveProjectOnly
		s.ProjectFilePath = test.path
		s.Normalize()
		assert.Equal(t, test.want, s.ProjectFilePath)
		if test.want != "" {
			assert.NoError(t, s.Validate())
		}
	}
}

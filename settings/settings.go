// Package settings holds the renderer settings of an export session and
// reads and writes them as TOML.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/appleseedhq/asmax/logtarget"
	"github.com/pelletier/go-toml/v2"
)

// Output modes.
const (
	OutputRenderOnly           = "render-only"
	OutputSaveProjectOnly      = "save-project-only"
	OutputSaveProjectAndRender = "save-project-and-render"
)

// ProjectExtension is the file extension of saved projects.
const ProjectExtension = ".appleseed"

// PixelFilters lists the accepted pixel filter names.
var PixelFilters = []string{
	"blackman-harris", "box", "catmull", "bspline", "gaussian", "lanczos", "mitchell", "triangle",
}

var outputModes = []string{OutputRenderOnly, OutputSaveProjectOnly, OutputSaveProjectAndRender}

var ErrInvalid = errors.New("invalid settings")

// Settings are the renderer settings.
type Settings struct {
	PixelSamples    int     `toml:"pixel_samples"`
	Passes          int     `toml:"passes"`
	TileSize        int     `toml:"tile_size"`
	PixelFilter     string  `toml:"pixel_filter"`
	PixelFilterSize float32 `toml:"pixel_filter_size"`

	GI                    bool    `toml:"gi"`
	Caustics              bool    `toml:"caustics"`
	Bounces               int     `toml:"bounces"`
	MaxRayIntensitySet    bool    `toml:"max_ray_intensity_set"`
	MaxRayIntensity       float32 `toml:"max_ray_intensity"`
	BackgroundEmitsLight  bool    `toml:"background_emits_light"`
	BackgroundAlpha       float32 `toml:"background_alpha"`
	ForceOffDefaultLights bool    `toml:"force_off_default_lights"`

	OutputMode      string  `toml:"output_mode"`
	ProjectFilePath string  `toml:"project_file_path"`
	ScaleMultiplier float32 `toml:"scale_multiplier"`

	// RenderingThreads is the number of rendering threads; 0 selects one per core.
	RenderingThreads int  `toml:"rendering_threads"`
	LowPriorityMode  bool `toml:"low_priority_mode"`
	// UseMaxProceduralMaps builds builtin materials sampling host textures
	// instead of OSL shader groups.
	UseMaxProceduralMaps      bool   `toml:"use_max_procedural_maps"`
	LogMaterialEditorMessages bool   `toml:"log_material_editor_messages"`
	LogOpenMode               string `toml:"log_open_mode"`
	EnableRenderStamp         bool   `toml:"enable_render_stamp"`
	RenderStampFormat         string `toml:"render_stamp_format"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		PixelSamples:         16,
		Passes:               1,
		TileSize:             64,
		PixelFilter:          "blackman-harris",
		PixelFilterSize:      1.5,
		GI:                   true,
		Bounces:              8,
		MaxRayIntensity:      1,
		BackgroundEmitsLight: true,
		BackgroundAlpha:      1,
		OutputMode:           OutputRenderOnly,
		ScaleMultiplier:      1,
		LowPriorityMode:      true,
		LogOpenMode:          "errors",
		RenderStampFormat:    "appleseed {lib-version} | Time: {render-time}",
	}
}

// Load reads settings from the TOML file at path. See [Decode].
func Load(path string) (Settings, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Settings{}, err
	}
	defer fp.Close()
	s, err := Decode(fp)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode reads TOML settings from r. Keys absent from r keep their default
// value; unknown keys are an error.
func Decode(r io.Reader) (Settings, error) {
	s := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Settings{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Settings{}, err
	}
	return s, nil
}

// Save writes s as TOML to the file at path.
func (s Settings) Save(path string) error {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o666)
}

// Encode writes s as TOML to w.
func (s Settings) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// SavesProject reports whether the output mode writes a project file.
func (s Settings) SavesProject() bool {
	return s.OutputMode == OutputSaveProjectOnly || s.OutputMode == OutputSaveProjectAndRender
}

// Renders reports whether the output mode renders.
func (s Settings) Renders() bool {
	return s.OutputMode == OutputRenderOnly || s.OutputMode == OutputSaveProjectAndRender
}

// OpenMode returns the log window open mode, [logtarget.OpenErrors] if unknown.
func (s Settings) OpenMode() logtarget.OpenMode {
	mode, _ := logtarget.ParseOpenMode(s.LogOpenMode)
	return mode
}

// Normalize gives a non-empty project file path the project extension,
// replacing any other extension.
func (s *Settings) Normalize() {
	if s.ProjectFilePath == "" {
		return
	}
	ext := filepath.Ext(s.ProjectFilePath)
	if strings.EqualFold(ext, ProjectExtension) {
		return
	}
	s.ProjectFilePath = strings.TrimSuffix(s.ProjectFilePath, ext) + ProjectExtension
}

// Validate checks the ranges and enumerations of s.
func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(s.PixelSamples >= 1, "pixel_samples %d < 1", s.PixelSamples)
	check(s.Passes >= 1, "passes %d < 1", s.Passes)
	check(s.TileSize >= 1, "tile_size %d < 1", s.TileSize)
	check(slices.Contains(PixelFilters, s.PixelFilter), "unknown pixel_filter %q", s.PixelFilter)
	check(s.PixelFilterSize > 0, "pixel_filter_size %g <= 0", s.PixelFilterSize)
	check(s.Bounces >= 0, "bounces %d < 0", s.Bounces)
	check(!s.MaxRayIntensitySet || s.MaxRayIntensity > 0, "max_ray_intensity %g <= 0", s.MaxRayIntensity)
	check(s.BackgroundAlpha >= 0 && s.BackgroundAlpha <= 1, "background_alpha %g outside [0,1]", s.BackgroundAlpha)
	check(slices.Contains(outputModes, s.OutputMode), "unknown output_mode %q", s.OutputMode)
	check(s.ScaleMultiplier > 0, "scale_multiplier %g <= 0", s.ScaleMultiplier)
	check(s.RenderingThreads >= 0, "rendering_threads %d < 0", s.RenderingThreads)
	if _, err := logtarget.ParseOpenMode(s.LogOpenMode); err != nil {
		errs = append(errs, fmt.Errorf("%w: log_open_mode: %w", ErrInvalid, err))
	}
	if s.SavesProject() {
		check(strings.EqualFold(filepath.Ext(s.ProjectFilePath), ProjectExtension),
			"project_file_path %q must end in %s", s.ProjectFilePath, ProjectExtension)
	}
	return errors.Join(errs...)
}

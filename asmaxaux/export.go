package asmaxaux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/appleseedhq/asmax"
	"github.com/appleseedhq/asmax/interactive"
	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/settings"
)

// AssemblyName is the name of exported assemblies.
const AssemblyName = "assembly"

type ExportConfig struct {
	Settings settings.Settings
	// Time is the animation time materials are built at.
	Time maxhost.TimeValue
	// Strict validates every shader group against the shader catalog.
	Strict bool
	Logger *slog.Logger
}

func (cfg ExportConfig) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg.Logger
}

// Export builds the exported materials of desc into a new assembly. The
// assembly is always returned; the error joins the build diagnostics and, in
// strict mode, the shader group validation failures.
func Export(cfg ExportConfig, desc *Description) (*scene.Assembly, error) {
	log := cfg.logger()
	watch := stopwatch()
	a := scene.NewAssembly(AssemblyName)
	b := asmax.NewBuilder(a,
		asmax.WithTime(cfg.Time),
		asmax.WithMaxProceduralMaps(cfg.Settings.UseMaxProceduralMaps),
		asmax.WithLogger(log),
	)
	names := b.Export(desc.Export...)
	log.Info("exported materials",
		slog.Int("materials", len(names)),
		slog.Int("shader_groups", a.ShaderGroups.Len()),
		slog.Int("textures", a.Textures.Len()),
		slog.Duration("elapsed", watch()))

	errs := []error{b.Err()}
	if cfg.Strict {
		for _, g := range a.ShaderGroups.Items() {
			if err := oslbuild.Validate(g); err != nil {
				errs = append(errs, fmt.Errorf("shader group %q: %w", g.Name(), err))
			}
		}
	}
	return a, errors.Join(errs...)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// DefaultFrameInterval is the polling period of [Watch].
const DefaultFrameInterval = 100 * time.Millisecond

// Watch exports desc, then re-exports it whenever one of its bitmap files
// changes until ctx is done. Changed bitmaps are reloaded and the materials
// using them invalidated before the re-export. onExport receives the result of
// every export on the calling goroutine.
func Watch(ctx context.Context, cfg ExportConfig, desc *Description, onExport func(*scene.Assembly, error)) error {
	log := cfg.logger()
	var ctl interactive.Controller
	var mu sync.Mutex
	dirty := make(map[string]bool)

	reexport := interactive.CameraUpdaterFunc(func() {
		mu.Lock()
		paths := dirty
		dirty = make(map[string]bool)
		mu.Unlock()
		for _, bt := range desc.Bitmaps() {
			abs, err := filepath.Abs(bt.Path)
			if err != nil || !paths[abs] {
				continue
			}
			if err := bt.Load(); err != nil {
				log.Warn("reloading bitmap", slog.String("path", bt.Path), slog.Any("err", err))
			}
			for _, m := range desc.MaterialsUsing(bt, cfg.Time) {
				m.Invalidate()
			}
		}
		onExport(Export(cfg, desc))
	})

	tw, err := interactive.NewTextureWatcher(func(path string) {
		mu.Lock()
		dirty[path] = true
		mu.Unlock()
		ctl.ScheduleUpdate(reexport)
	}, log)
	if err != nil {
		return err
	}
	defer tw.Close()
	for _, bt := range desc.Bitmaps() {
		if err := tw.Watch(bt.Path); err != nil {
			log.Warn("watching bitmap", slog.String("path", bt.Path), slog.Any("err", err))
		}
	}

	ctl.OnRenderingBegin()
	onExport(Export(cfg, desc))
	ticker := time.NewTicker(DefaultFrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ctl.SetStatus(interactive.Ended)
			return nil
		case <-ticker.C:
			ctl.OnFrameBegin()
		}
	}
}

// Command asmax exports the materials of a YAML scene description as appleseed
// shader groups.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/appleseedhq/asmax/asmaxaux"
	"github.com/appleseedhq/asmax/logtarget"
	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/oslbuild"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/settings"
	"github.com/spf13/cobra"
)

type flags struct {
	settingsPath string
	output       string
	text         bool
	strict       bool
	frame        int
	vv, v, q     bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "asmax",
		Short:         "Translate host materials into appleseed OSL shader groups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.settingsPath, "settings", "", "renderer settings TOML file")
	pf.IntVar(&f.frame, "frame", 0, "animation frame materials are built at")
	pf.BoolVar(&f.strict, "strict", false, "fail on shader groups rejected by the shader catalog")
	pf.BoolVar(&f.vv, "vv", false, "debug output")
	pf.BoolVarP(&f.v, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&f.q, "quiet", "q", false, "only print errors")

	export := &cobra.Command{
		Use:   "export <scene.yaml>",
		Short: "Export the materials of a scene description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, &f, args[0])
		},
	}
	export.Flags().StringVarP(&f.output, "output", "o", "", "assembly YAML output file, stdout if empty")
	export.Flags().BoolVar(&f.text, "text", false, "print shader groups in text form instead of the assembly")

	watch := &cobra.Command{
		Use:   "watch <scene.yaml>",
		Short: "Export a scene description again on every bitmap change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, &f, args[0])
		},
	}
	watch.Flags().StringVarP(&f.output, "output", "o", "", "assembly YAML output file, stdout if empty")

	defaults := &cobra.Command{
		Use:   "settings",
		Short: "Print the default renderer settings as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return settings.Default().Encode(cmd.OutOrStdout())
		},
	}
	root.AddCommand(export, watch, defaults)
	return root
}

// session is the state shared by export commands.
type session struct {
	cfg    asmaxaux.ExportConfig
	target *logtarget.Target
	stderr io.Writer
}

func newSession(cmd *cobra.Command, f *flags) (*session, error) {
	s := settings.Default()
	if f.settingsPath != "" {
		var err error
		s, err = settings.Load(f.settingsPath)
		if err != nil {
			return nil, err
		}
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	target := logtarget.New(logtarget.DefaultSessionSize)
	level := logtarget.LevelFromFlags(f.vv, f.v, f.q)
	return &session{
		cfg: asmaxaux.ExportConfig{
			Settings: s,
			Time:     maxhost.Frame(f.frame),
			Strict:   f.strict,
			Logger:   slog.New(logtarget.NewHandler(target, level)),
		},
		target: target,
		stderr: cmd.ErrOrStderr(),
	}, nil
}

// flush prints the pending log messages.
func (ss *session) flush() {
	ss.target.Drain(func(m logtarget.Message) {
		for _, line := range m.Lines {
			fmt.Fprintf(ss.stderr, "%s: %s\n", m.Category, line)
		}
	})
}

// summarize repeats the messages of the session when the log open mode of the
// settings asks for it.
func (ss *session) summarize() {
	if !ss.target.ShouldOpen(ss.cfg.Settings.OpenMode()) {
		return
	}
	msgs := ss.target.LastSession()
	fmt.Fprintf(ss.stderr, "--- %d messages logged this session\n", len(msgs))
	for _, m := range msgs {
		for _, line := range m.Lines {
			fmt.Fprintf(ss.stderr, "%s: %s\n", m.Category, line)
		}
	}
}

func runExport(cmd *cobra.Command, f *flags, path string) error {
	ss, err := newSession(cmd, f)
	if err != nil {
		return report(cmd, err)
	}
	ss.target.BeginSession()
	desc, err := asmaxaux.Load(path)
	if err != nil {
		return report(cmd, err)
	}
	a, exportErr := asmaxaux.Export(ss.cfg, desc)
	if exportErr != nil {
		ss.cfg.Logger.Error("export diagnostics", slog.Any("err", exportErr))
	}
	ss.flush()
	if f.text {
		err = writeText(cmd.OutOrStdout(), a)
	} else {
		err = writeAssembly(cmd.OutOrStdout(), f.output, a)
	}
	ss.summarize()
	if err != nil {
		return report(cmd, err)
	}
	if f.strict && exportErr != nil {
		return report(cmd, errors.New("export failed in strict mode"))
	}
	return nil
}

func runWatch(cmd *cobra.Command, f *flags, path string) error {
	ss, err := newSession(cmd, f)
	if err != nil {
		return report(cmd, err)
	}
	desc, err := asmaxaux.Load(path)
	if err != nil {
		return report(cmd, err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ss.target.BeginSession()
	err = asmaxaux.Watch(ctx, ss.cfg, desc, func(a *scene.Assembly, err error) {
		ss.exported(cmd.OutOrStdout(), f.output, a, err)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return report(cmd, err)
	}
	return nil
}

// exported reports an export of the watch loop and starts the session of the
// next export.
func (ss *session) exported(stdout io.Writer, output string, a *scene.Assembly, err error) {
	if err != nil {
		ss.cfg.Logger.Error("export diagnostics", slog.Any("err", err))
	}
	if werr := writeAssembly(stdout, output, a); werr != nil {
		ss.cfg.Logger.Error("writing assembly", slog.Any("err", werr))
	}
	ss.flush()
	ss.summarize()
	ss.target.BeginSession()
}

func writeAssembly(stdout io.Writer, output string, a *scene.Assembly) error {
	if output == "" {
		return a.WriteYAML(stdout)
	}
	fp, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := a.WriteYAML(fp); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

func writeText(w io.Writer, a *scene.Assembly) error {
	for _, g := range a.ShaderGroups.Items() {
		if _, err := oslbuild.WriteGroup(w, g); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func report(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "asmax:", err)
	return err
}

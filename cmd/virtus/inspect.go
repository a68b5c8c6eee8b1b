package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/virtuscloud/virtus/cmd/virtus/tui"
	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/manifest"
	"github.com/virtuscloud/virtus/pkg/virtus/output"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
	"github.com/virtuscloud/virtus/pkg/virtus/watcher"
)

var (
	watchFlag    bool
	debounceFlag time.Duration
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive.zip>",
	Short: "List archive members and resolve the entrypoint",
	Long: `Inspect reads a ZIP archive, lists its members, finds the entrypoint
candidates and resolves the entrypoint for the selected mode.

In auto mode the entrypoint is the one declared in the root-level
config.virtus file ("entrypoint = <path>"). In manual mode it is the first
candidate, or the one given with --entrypoint or picked with --pick.

Examples:
  virtus inspect app.zip
  virtus inspect -o json app.zip
  virtus inspect --manual --pick app.zip
  virtus inspect --watch -o tree dist/app.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.BoolVarP(&manualFlag, "manual", "m", false, "manual entrypoint mode")
	f.StringVarP(&entrypointFlag, "entrypoint", "E", "", "choose this candidate as entrypoint")
	f.StringVar(&extFlag, "ext", "", "comma-separated candidate extensions (e.g. py,js)")
	f.BoolVarP(&pickFlag, "pick", "p", false, "pick the entrypoint interactively")
	f.BoolVar(&noCacheFlag, "no-cache", false, "bypass the inspection cache")
	f.BoolVarP(&watchFlag, "watch", "w", false, "re-inspect whenever the archive changes")
	f.DurationVar(&debounceFlag, "debounce", watcher.DefaultDebounce, "settle time before re-inspecting in watch mode")
	f.StringP("output", "o", "", "output format ("+fmt.Sprint(output.Available())+")")
	f.String("template", "", "Go template for -o template")

	_ = viper.BindPFlag("inspect.output", f.Lookup("output"))
	_ = viper.BindPFlag("template", f.Lookup("template"))

	rootCmd.AddCommand(inspectCmd)
}

// inspectRun carries the resolved settings of one inspect invocation.
type inspectRun struct {
	mode       types.Mode
	extensions []string
	cache      archive.Cache
	formatter  output.Formatter
	history    *manifest.Manifest
	out        io.Writer
}

// runInspect is the inspect command handler.
func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := resolveFormatter()
	if err != nil {
		return err
	}

	path, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	h, err := types.OpenFile(path)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}

	store, closeCache := openCache(cfg, noCacheFlag)
	defer closeCache()

	run := &inspectRun{
		mode:       resolveMode(manualFlag, cfg),
		extensions: resolveExtensions(extFlag, cfg),
		cache:      store,
		formatter:  formatter,
		history:    openHistory(cfg),
		out:        cmd.OutOrStdout(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case watchFlag:
		return run.watch(ctx, h.Path())
	case pickFlag:
		return run.pick(h)
	default:
		return run.once(ctx, h)
	}
}

// once inspects h a single time and prints the report.
func (r *inspectRun) once(ctx context.Context, h types.Handle) error {
	insp := archive.NewInspector(archive.Options{
		ManualMode: r.mode.Manual(),
		Cache:      r.cache,
		Extensions: r.extensions,
	})
	defer insp.Close()

	insp.Select(ctx, h)
	if err := insp.Wait(ctx); err != nil {
		return fmt.Errorf("inspection interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("inspection interrupted: %w", err)
	}

	if entrypointFlag != "" {
		if err := insp.Choose(entrypointFlag); err != nil {
			r.record(h, insp.Snapshot().Result, "", err)
			return fmt.Errorf("entrypoint %q: %w", entrypointFlag, err)
		}
	}

	snap := insp.Snapshot()
	if snap.Result == nil {
		return errors.New("inspection produced no result")
	}
	r.record(h, snap.Result, snap.Entrypoint, nil)
	return r.print(snap.Result, snap.Entrypoint)
}

// pick runs the interactive picker and prints the report for the choice.
func (r *inspectRun) pick(h types.Handle) error {
	chosen, result, err := tui.Run(tui.Options{
		Archive:    h,
		Manual:     r.mode.Manual(),
		Cache:      r.cache,
		Extensions: r.extensions,
	})
	if err != nil {
		if result != nil {
			r.record(h, result, "", err)
		}
		return err
	}
	r.record(h, result, chosen, nil)
	return r.print(result, chosen)
}

// watch re-inspects path on every settled change until interrupted. Each new
// selection supersedes the previous one, so only the latest archive prints.
func (r *inspectRun) watch(ctx context.Context, path string) error {
	w, err := watcher.New(path, debounceFlag)
	if err != nil {
		return err
	}
	defer w.Close()

	ready := make(chan struct{}, 1)
	insp := archive.NewInspector(archive.Options{
		ManualMode: r.mode.Manual(),
		Cache:      r.cache,
		Extensions: r.extensions,
		OnFileSelect: func(h types.Handle) {
			printVerbose("inspecting %s (%s)", h.Name(), types.FormatSize(h.Size()))
		},
		OnEntrypointSelect: func(string) {
			select {
			case ready <- struct{}{}:
			default:
			}
		},
	})
	defer insp.Close()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ready:
				snap := insp.Snapshot()
				if ctx.Err() != nil {
					return
				}
				if snap.Result == nil {
					continue
				}
				if err := r.print(snap.Result, snap.Entrypoint); err != nil {
					printError("%v", err)
				}
			}
		}
	}()

	h, err := types.OpenFile(path)
	if err != nil {
		return err
	}
	insp.Select(ctx, h)

	printInfo("Watching %s (Ctrl+C to stop)", path)
	if err := w.Run(ctx, insp); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// print formats one report to the command output.
func (r *inspectRun) print(res *archive.Result, entrypoint string) error {
	report := output.NewReport(res, r.mode, entrypoint)
	if len(res.Entries) == 0 {
		report.Warnings = append(report.Warnings, "archive is empty or could not be read")
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err := r.out.Write(buf.Bytes())
	return err
}

// record appends an inspect entry to history when enabled.
func (r *inspectRun) record(h types.Handle, res *archive.Result, entrypoint string, err error) {
	if r.history == nil {
		return
	}
	rec := manifest.Record{
		Archive:    manifest.ArchiveRecord{Name: h.Name(), Size: h.Size()},
		Mode:       string(r.mode),
		Entrypoint: entrypoint,
		Err:        err,
	}
	if res != nil {
		rec.Archive.SHA256 = res.Digest
		rec.Candidates = res.Candidates
	}
	if _, lerr := r.history.LogInspect(rec); lerr != nil {
		cliLog.Warn("failed to record inspection", "error", lerr)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/pack"
)

var (
	excludeFlag []string
	packOutFlag string
)

var packCmd = &cobra.Command{
	Use:   "pack [directory]",
	Short: "Pack a project directory into a deployable ZIP",
	Long: `Pack writes the regular files of a directory into a ZIP archive.

Archives are reproducible: members are sorted by path and carry a fixed
timestamp, so packing an unchanged tree yields identical bytes and hits the
inspection cache. Symlinks are not followed.

Patterns are matched against slash-separated paths relative to the
directory (default: pack.exclude, i.e. .git/** and node_modules/**).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVarP(&packOutFlag, "output", "o", "", "archive path (default: <directory>.zip in the current directory)")
	packCmd.Flags().StringSliceVarP(&excludeFlag, "exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.AddCommand(packCmd)
}

// runPack is the pack command handler.
func runPack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err = config.ExpandPath(dir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	out := packOutFlag
	if out == "" {
		out = filepath.Base(abs) + ".zip"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := packDir(ctx, cfg, abs, out)
	if err != nil {
		return err
	}

	printInfo("Packed %d files (%s) into %s", len(summary.Files), humanize.IBytes(uint64(summary.Bytes)), out)
	return nil
}

// packDir packs dir to out using --exclude or the configured patterns.
func packDir(ctx context.Context, cfg *config.Config, dir, out string) (*pack.Summary, error) {
	exclude := excludeFlag
	if len(exclude) == 0 {
		exclude = cfg.Pack.Exclude
	}

	summary, err := pack.PackFile(ctx, dir, out, pack.Options{Exclude: exclude})
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", dir, err)
	}
	return summary, nil
}

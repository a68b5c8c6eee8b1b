package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/virtuscloud/virtus/pkg/virtus/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the inspection cache",
	Long: `Commands for managing the inspection cache.

The cache stores archive inspections keyed by the archive's SHA-256 digest,
so selecting an unchanged archive again skips reading it. Cache data is
stored in the XDG cache directory (typically ~/.cache/virtus/inspections).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached inspections",
	Long:  `Removes all cached inspections. The next inspection of every archive reads it in full.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cachePath := cacheDir()

		if _, err := os.Stat(cachePath); os.IsNotExist(err) {
			printInfo("Cache is already empty.")
			return nil
		}

		store, err := cache.Open(cachePath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()

		n, _ := store.Count()
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		printInfo("Cache cleared (%d entries).", n)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays information about the cache including its location, entry count, and size on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cachePath := cacheDir()
		w := cmd.OutOrStdout()

		info, err := os.Stat(cachePath)
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "Cache: empty (no cache directory)")
			fmt.Fprintf(w, "Cache location: %s\n", cachePath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stat cache: %w", err)
		}

		// Get directory size
		var size int64
		err = filepath.Walk(cachePath, func(_ string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				size += info.Size()
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to calculate cache size: %w", err)
		}

		store, err := cache.Open(cachePath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()

		count, err := store.Count()
		if err != nil {
			return fmt.Errorf("failed to count cache entries: %w", err)
		}

		fmt.Fprintf(w, "Cache location: %s\n", cachePath)
		fmt.Fprintf(w, "Entries:        %d\n", count)
		fmt.Fprintf(w, "Size on disk:   %s\n", humanize.IBytes(uint64(size)))
		fmt.Fprintf(w, "Last modified:  %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cacheDir())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cacheDir returns the configured cache path, falling back to the default.
func cacheDir() string {
	if cfg, err := loadConfig(); err == nil && cfg.Cache.Path != "" {
		return cfg.Cache.Path
	}
	return cache.DefaultPath()
}

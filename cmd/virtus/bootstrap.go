package main

import (
	"github.com/virtuscloud/virtus/pkg/client"
	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/cache"
	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/manifest"
)

var cliLog = logging.Get("cli")

// newClient builds an API client from the server section.
func newClient(cfg *config.Config) (*client.Client, error) {
	if err := cfg.RequireServer(); err != nil {
		return nil, err
	}
	return client.New(cfg.Server.URL, cfg.Server.Token, client.Options{
		Timeout:   cfg.Server.Timeout,
		UserAgent: userAgent(),
	})
}

// openCache opens the inspection cache unless disabled. A cache that fails
// to open is skipped with a warning; the returned close func is never nil.
func openCache(cfg *config.Config, disabled bool) (archive.Cache, func()) {
	if disabled || !cfg.Cache.Enabled {
		return nil, func() {}
	}
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		cliLog.Warn("inspection cache unavailable", "path", cfg.Cache.Path, "error", err)
		printVerbose("cache disabled: %v", err)
		return nil, func() {}
	}
	return store, func() { _ = store.Close() }
}

// openHistory returns the history manifest, or nil when disabled.
func openHistory(cfg *config.Config) *manifest.Manifest {
	if !cfg.History.Enabled {
		return nil
	}
	m, err := manifest.New(cfg.History.Path)
	if err == nil {
		err = m.EnsureDir()
	}
	if err != nil {
		cliLog.Warn("history unavailable", "path", cfg.History.Path, "error", err)
		return nil
	}
	return m
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/output"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

// Flag variables shared by inspect and deploy.
var (
	manualFlag     bool
	entrypointFlag string
	extFlag        string
	pickFlag       bool
	noCacheFlag    bool
)

// resolveMode combines --manual with the configured deploy.mode.
// --manual wins; otherwise the config (or VIRTUS_DEPLOY_MODE) decides.
func resolveMode(manual bool, cfg *config.Config) types.Mode {
	if manual {
		return types.ModeManual
	}
	return cfg.Mode()
}

// resolveExtensions returns the candidate extension allow-list from --ext
// or inspect.extensions. Nil means the built-in list.
func resolveExtensions(flagVal string, cfg *config.Config) []string {
	exts := parseCommaSeparated(flagVal)
	if len(exts) == 0 {
		exts = cfg.Inspect.Extensions
	}
	exts = archive.NormalizeExtensions(exts)
	if len(exts) == 0 {
		return nil
	}
	return exts
}

// resolveFormatter returns the formatter named by inspect.output.
func resolveFormatter() (output.Formatter, error) {
	outFormat := viper.GetString("inspect.output")
	if outFormat == "" {
		outFormat = config.DefaultOutput
	}

	if outFormat == "template" {
		tmplStr := viper.GetString("template")
		if tmplStr == "" {
			return output.Get("template")
		}
		return output.NewTemplateFormatter(tmplStr), nil
	}

	formatter, err := output.Get(outFormat)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", outFormat, output.Available())
	}
	return formatter, nil
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Package config provides configuration management for the virtus CLI.
package config

import "time"

// Default configuration values for virtus.
const (
	// DefaultServerURL is the API root used when none is configured.
	DefaultServerURL = "https://api.virtus.cloud"

	// DefaultTimeout bounds each API request.
	DefaultTimeout = 30 * time.Second

	// DefaultMode is the entrypoint selection mode for new inspections.
	DefaultMode = "auto"

	// DefaultOutput is the inspect output format.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is the default number of days to retain history.
	DefaultRetentionDays = 30

	// EnvPrefix prefixes environment overrides, e.g. VIRTUS_SERVER_TOKEN.
	EnvPrefix = "VIRTUS"
)

// DefaultPackExclude lists the patterns skipped when packing a directory.
var DefaultPackExclude = []string{".git/**", "node_modules/**"}

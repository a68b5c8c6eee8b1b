package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/virtuscloud/virtus/pkg/virtus/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage virtus configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/virtus/config.yaml (if set)
  2. ~/.config/virtus/config.yaml

Environment variables can override config file settings using the VIRTUS_ prefix:
  VIRTUS_SERVER_TOKEN=...
  VIRTUS_DEPLOY_MODE=manual
  VIRTUS_INSPECT_OUTPUT=json`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources. The token is masked.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath returns --config or the default location.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(w, "Config file: %s\n\n", configFile)
	} else {
		fmt.Fprintln(w, "Config file: (using defaults, no file found)")
		fmt.Fprintln(w)
	}

	writeConfig(w, cfg)

	fmt.Fprintln(w, "\nEnvironment Overrides:")
	fmt.Fprintln(w, "----------------------")
	anyOverrides := false
	for _, kv := range os.Environ() {
		name, val, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, config.EnvPrefix+"_") {
			continue
		}
		if strings.HasSuffix(name, "_TOKEN") {
			val = maskToken(val)
		}
		fmt.Fprintf(w, "%s=%s\n", name, val)
		anyOverrides = true
	}
	if !anyOverrides {
		fmt.Fprintln(w, "(none)")
	}

	return nil
}

// writeConfig prints the effective settings.
func writeConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "server.url:               %s\n", cfg.Server.URL)
	fmt.Fprintf(w, "server.token:             %s\n", maskToken(cfg.Server.Token))
	fmt.Fprintf(w, "server.timeout:           %s\n", cfg.Server.Timeout)
	fmt.Fprintf(w, "deploy.mode:              %s\n", cfg.Deploy.Mode)
	fmt.Fprintf(w, "deploy.plan:              %s\n", cfg.Deploy.Plan)
	fmt.Fprintf(w, "deploy.fetch_entrypoints: %t\n", cfg.Deploy.FetchEntrypoints)
	fmt.Fprintf(w, "inspect.extensions:       %v\n", cfg.Inspect.Extensions)
	fmt.Fprintf(w, "inspect.output:           %s\n", cfg.Inspect.Output)
	fmt.Fprintf(w, "pack.exclude:             %v\n", cfg.Pack.Exclude)
	fmt.Fprintf(w, "cache.enabled:            %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(w, "cache.path:               %s\n", cfg.Cache.Path)
	fmt.Fprintf(w, "history.enabled:          %t\n", cfg.History.Enabled)
	fmt.Fprintf(w, "history.path:             %s\n", cfg.History.Path)
	fmt.Fprintf(w, "history.retention:        %d days\n", cfg.History.RetentionDays)
	fmt.Fprintf(w, "logging.level:            %s\n", cfg.Logging.Level)
}

// maskToken hides all but the last four characters of a token.
func maskToken(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) <= 4:
		return strings.Repeat("*", len(token))
	default:
		return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
	}
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := configFilePath()
	if _, err := config.WriteDefault(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFilePath()

	written, err := config.WriteDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if !written {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'virtus config edit' to modify it.")
		return nil
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath := configFilePath()
	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}

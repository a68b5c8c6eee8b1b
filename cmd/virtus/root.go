package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/output"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "virtus",
		Short: "Inspect and deploy application archives to Virtus",
		Long: `Virtus inspects application archives and deploys them to the Virtus platform.

An archive is a ZIP of your project. Its entrypoint is either declared in a
root-level config.virtus file (auto mode) or picked from the recognised
source files it contains (manual mode).

Examples:
  virtus inspect app.zip             # List members and the resolved entrypoint
  virtus inspect --manual --pick app.zip
  virtus deploy app.zip              # Upload using config.virtus
  virtus deploy --manual -E main.py ./project
  virtus plan                        # Show deployment quota
  virtus history                     # View operation history`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRun: func(*cobra.Command, []string) { _ = logging.Close() },
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/virtus/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API base URL")
	rootCmd.PersistentFlags().String("token", "", "API token")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("server.token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initErr holds a config read failure from initConfig, reported by loadConfig.
var initErr error

// initConfig reads in config file and environment variables.
func initConfig() {
	initErr = config.Prepare(viper.GetViper(), cfgFile)
}

// loadConfig decodes the merged configuration.
func loadConfig() (*config.Config, error) {
	if initErr != nil {
		return nil, initErr
	}
	return config.Decode(viper.GetViper())
}

// initializeLogging is the PersistentPreRunE hook. A broken config does not
// stop commands like "config init" from running; logging falls back to
// defaults instead.
func initializeLogging(_ *cobra.Command, _ []string) error {
	lc := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		lc = cfg.LoggingConfig()
	}
	if getVerbose() {
		lc.ConsoleLevel = "debug"
	}
	if getQuiet() {
		lc.ConsoleLevel = ""
	}
	if err := logging.Init(lc); err != nil {
		printVerbose("logging disabled: %v", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, output.RenderError(err))
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

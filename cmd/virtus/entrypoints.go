package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var entrypointsCmd = &cobra.Command{
	Use:   "entrypoints <app-id>",
	Short: "List entrypoints detected by the server for an application",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntrypoints,
}

func init() {
	rootCmd.AddCommand(entrypointsCmd)
}

// runEntrypoints prints the server-side entrypoint list, one per line.
func runEntrypoints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newClient(cfg)
	if err != nil {
		return err
	}

	eps, err := api.Entrypoints(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("fetching entrypoints: %w", err)
	}

	if len(eps.Entrypoints) == 0 {
		printInfo("No entrypoints detected for %s.", eps.AppID)
		return nil
	}
	for _, ep := range eps.Entrypoints {
		fmt.Fprintln(cmd.OutOrStdout(), ep)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtuscloud/virtus/pkg/virtus/output"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the current plan and deployment quota",
	Long:  `Verifies the session and prints the plan name with deployments used and remaining.`,
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

// runPlan prints the session and plan status.
func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	session, err := api.VerifySession(ctx)
	if err != nil {
		return fmt.Errorf("verifying session: %w", err)
	}
	status, err := api.PlanStatus(ctx)
	if err != nil {
		return fmt.Errorf("checking plan status: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Account:      %s (%s)\n", session.Email, session.Role)
	fmt.Fprintf(w, "Plan:         %s\n", status.Plan)
	fmt.Fprintf(w, "Deployments:  %d of %d used\n", status.DeploymentsUsed, status.DeploymentsLimit)
	if status.Exhausted() {
		fmt.Fprintln(w, output.WarningStyle.Render("Deployment limit reached; upgrade your plan to deploy again."))
	} else {
		fmt.Fprintf(w, "Remaining:    %d\n", status.Remaining())
	}
	return nil
}

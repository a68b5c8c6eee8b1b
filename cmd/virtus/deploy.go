package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/virtuscloud/virtus/cmd/virtus/tui"
	"github.com/virtuscloud/virtus/pkg/virtus/config"
	"github.com/virtuscloud/virtus/pkg/virtus/deploy"
	"github.com/virtuscloud/virtus/pkg/virtus/output"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <archive.zip|directory>",
	Short: "Upload an archive to Virtus",
	Long: `Deploy verifies your session, checks the plan's deployment quota,
inspects the archive and uploads it.

A directory is packed into a ZIP first (see 'virtus pack'). In auto mode the
server resolves the entrypoint from config.virtus unless --entrypoint is
given. Manual mode always sends an entrypoint: the one given, the one
picked with --pick, or the first candidate.

Examples:
  virtus deploy app.zip
  virtus deploy --plan Pro ./project
  virtus deploy --manual -E src/server.js app.zip
  virtus deploy --pick app.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	f := deployCmd.Flags()
	f.BoolVarP(&manualFlag, "manual", "m", false, "manual entrypoint mode")
	f.StringVarP(&entrypointFlag, "entrypoint", "E", "", "entrypoint to send (must be a candidate)")
	f.StringVar(&extFlag, "ext", "", "comma-separated candidate extensions (e.g. py,js)")
	f.BoolVarP(&pickFlag, "pick", "p", false, "pick the entrypoint interactively (implies --manual)")
	f.BoolVar(&noCacheFlag, "no-cache", false, "bypass the inspection cache")
	f.StringSliceVarP(&excludeFlag, "exclude", "e", nil, "exclude patterns when packing a directory")
	f.String("plan", "", "plan name sent with the upload")
	f.Bool("fetch-entrypoints", false, "list server-detected entrypoints after upload")

	_ = viper.BindPFlag("deploy.plan", f.Lookup("plan"))
	_ = viper.BindPFlag("deploy.fetch_entrypoints", f.Lookup("fetch-entrypoints"))

	rootCmd.AddCommand(deployCmd)
}

// runDeploy is the deploy command handler.
func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	archivePath, cleanup, err := prepareArchive(ctx, cfg, path)
	if err != nil {
		return err
	}
	defer cleanup()

	h, err := types.OpenFile(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}

	store, closeCache := openCache(cfg, noCacheFlag)
	defer closeCache()

	out := cmd.OutOrStdout()
	opts := deploy.Options{
		API:              api,
		Observer:         bannerPrinter(cmd.ErrOrStderr()),
		Cache:            store,
		Extensions:       resolveExtensions(extFlag, cfg),
		Timeout:          cfg.Server.Timeout,
		FetchEntrypoints: cfg.Deploy.FetchEntrypoints,
	}
	if hist := openHistory(cfg); hist != nil {
		opts.History = hist
	}

	wizard, err := deploy.New(opts)
	if err != nil {
		return err
	}

	req := deploy.Request{
		Archive:    h,
		Mode:       resolveMode(manualFlag || pickFlag, cfg),
		Entrypoint: entrypointFlag,
		Plan:       cfg.Deploy.Plan,
	}
	if pickFlag && entrypointFlag == "" {
		req.Choose = func(candidates []string) (string, error) {
			return tui.Pick(h.Name(), candidates, candidates[0])
		}
	}

	res, err := wizard.Run(ctx, req)
	if err != nil {
		return err
	}

	printDeployResult(out, res)
	return nil
}

// bannerPrinter renders wizard banners. Error banners are left to the root
// command, which prints the returned error.
func bannerPrinter(w io.Writer) deploy.Observer {
	return deploy.ObserverFunc(func(b deploy.Banner) {
		if getQuiet() && b.Level != deploy.LevelWarn {
			return
		}
		switch b.Level {
		case deploy.LevelSuccess:
			fmt.Fprintln(w, output.SuccessStyle.Render("✓ "+b.Message))
		case deploy.LevelWarn:
			fmt.Fprintln(w, output.WarningStyle.Render("! "+b.Message))
		case deploy.LevelInfo:
			fmt.Fprintln(w, output.MutedStyle.Render("• "+b.Message))
		}
	})
}

// printDeployResult writes the deployment summary.
func printDeployResult(w io.Writer, res *deploy.Result) {
	label := func(s string) string { return output.LabelStyle.Render(fmt.Sprintf("%-12s", s)) }

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", label("App ID:"), output.ValueStyle.Render(res.Deployment.AppID))
	if res.Deployment.Status != "" {
		fmt.Fprintf(w, "%s %s\n", label("Status:"), res.Deployment.Status)
	}
	if res.Deployment.URL != "" {
		fmt.Fprintf(w, "%s %s\n", label("URL:"), res.Deployment.URL)
	}
	fmt.Fprintf(w, "%s %s\n", label("Mode:"), res.Mode)

	entrypoint := res.Entrypoint
	if entrypoint == "" {
		entrypoint = "(resolved by server)"
	}
	fmt.Fprintf(w, "%s %s\n", label("Entrypoint:"), output.EntrypointStyle.Render(entrypoint))
	if res.PlanName != "" {
		fmt.Fprintf(w, "%s %s\n", label("Plan:"), res.PlanName)
	}
	if res.Plan != nil {
		fmt.Fprintf(w, "%s %d of %d used before this deploy\n", label("Quota:"),
			res.Plan.DeploymentsUsed, res.Plan.DeploymentsLimit)
	}
	if res.Deployment.Message != "" {
		fmt.Fprintf(w, "%s %s\n", label("Message:"), res.Deployment.Message)
	}
	if len(res.Entrypoints) > 0 {
		fmt.Fprintf(w, "%s %s\n", label("Detected:"), strings.Join(res.Entrypoints, ", "))
	}
}

// prepareArchive returns a ZIP path for path, packing it first when it is a
// directory. cleanup removes any temporary archive and is never nil.
func prepareArchive(ctx context.Context, cfg *config.Config, path string) (string, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return path, func() {}, nil
	}

	tmpDir, err := os.MkdirTemp("", "virtus-deploy-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	abs, err := filepath.Abs(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	out := filepath.Join(tmpDir, filepath.Base(abs)+".zip")

	summary, err := packDir(ctx, cfg, abs, out)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	printVerbose("packed %d files into %s", len(summary.Files), out)
	return out, cleanup, nil
}

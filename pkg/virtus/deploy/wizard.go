// Package deploy runs the deploy wizard: session check, plan quota check,
// archive inspection, entrypoint selection, upload and optional entrypoint
// discovery. Steps run strictly in sequence and each network call is
// bounded by a timeout.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/virtuscloud/virtus/pkg/client"
	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/manifest"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

var (
	// ErrPlanLimitReached is returned when the plan has no deployments left.
	ErrPlanLimitReached = errors.New("deployment limit reached for current plan")
	// ErrNoEntrypoint is returned in manual mode when nothing was chosen.
	ErrNoEntrypoint = errors.New("manual mode requires an entrypoint")
	// ErrNoArchive is returned when the request has no archive.
	ErrNoArchive = errors.New("no archive selected")
	// ErrEmptyArchive is returned when the archive has no files or could not
	// be read.
	ErrEmptyArchive = errors.New("archive is empty or could not be read")
)

// DefaultTimeout bounds each step when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// API is the subset of the REST client used by the wizard.
type API interface {
	VerifySession(ctx context.Context) (*client.Session, error)
	PlanStatus(ctx context.Context) (*client.PlanStatus, error)
	Upload(ctx context.Context, req client.UploadRequest) (*client.Deployment, error)
	Entrypoints(ctx context.Context, appID string) (*client.Entrypoints, error)
}

// Recorder persists deploy outcomes. *manifest.Manifest satisfies it.
type Recorder interface {
	LogDeploy(rec manifest.Record) (*manifest.Entry, error)
}

// Options configures a Wizard.
type Options struct {
	API      API
	Observer Observer
	// History records each attempt once the archive is known. Optional.
	History Recorder
	// Cache and Extensions are passed to the archive inspector.
	Cache      archive.Cache
	Extensions []string
	// Timeout bounds each step. Zero means DefaultTimeout.
	Timeout time.Duration
	// FetchEntrypoints asks the server for detected entrypoints after upload.
	FetchEntrypoints bool
}

// Request is one deploy attempt.
type Request struct {
	Archive types.Handle
	Mode    types.Mode
	// Entrypoint overrides the resolved entrypoint and must be a candidate.
	Entrypoint string
	Plan       string
	// Choose is consulted in manual mode when no override is given. It
	// receives the candidates and returns the chosen path.
	Choose func(candidates []string) (string, error)
}

// Result summarizes a deploy. On failure Run returns the steps completed
// so far alongside the error.
type Result struct {
	Mode       types.Mode
	Session    *client.Session
	Plan       *client.PlanStatus
	Inspection *archive.Result
	// Entrypoint is the effective entrypoint after resolution and any
	// override. Empty in auto mode means the server resolves it.
	Entrypoint string
	// PlanName is the plan sent with the upload.
	PlanName    string
	Deployment  *client.Deployment
	Entrypoints []string
}

// Wizard runs deploys.
type Wizard struct {
	opts    Options
	timeout time.Duration
	log     *logging.Logger
}

// New returns a Wizard. opts.API is required.
func New(opts Options) (*Wizard, error) {
	if opts.API == nil {
		return nil, errors.New("deploy: API client is required")
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Wizard{opts: opts, timeout: timeout, log: logging.Get("deploy")}, nil
}

// Run executes every step in order. The first failure is reported through
// the observer as an error banner and returned with the partial result.
// Every attempt with an archive is recorded in History.
func (w *Wizard) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := w.run(ctx, req)
	if req.Archive != nil {
		w.record(req, res, err)
	}
	if err != nil {
		w.log.Error("deploy failed", "error", err)
		w.banner(LevelError, Message(err))
		return res, err
	}
	return res, nil
}

func (w *Wizard) run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Mode: req.Mode}
	if res.Mode == "" {
		res.Mode = types.ModeAuto
	}
	if req.Archive == nil {
		return res, ErrNoArchive
	}

	w.banner(LevelInfo, "Verifying session")
	session, err := step(ctx, w.timeout, w.opts.API.VerifySession)
	if err != nil {
		return res, fmt.Errorf("verifying session: %w", err)
	}
	res.Session = session

	w.banner(LevelInfo, "Checking plan status")
	plan, err := step(ctx, w.timeout, w.opts.API.PlanStatus)
	if err != nil {
		return res, fmt.Errorf("checking plan status: %w", err)
	}
	res.Plan = plan
	if plan.Exhausted() {
		return res, fmt.Errorf("%w (%d of %d used)", ErrPlanLimitReached, plan.DeploymentsUsed, plan.DeploymentsLimit)
	}

	w.banner(LevelInfo, "Inspecting "+req.Archive.Name())
	if err := w.inspect(ctx, req, res); err != nil {
		return res, err
	}

	// Auto mode leaves resolution to the server unless overridden.
	override := req.Entrypoint
	if res.Mode.Manual() {
		override = res.Entrypoint
	}

	res.PlanName = req.Plan
	if res.PlanName == "" {
		res.PlanName = plan.Plan
	}

	w.banner(LevelInfo, "Uploading "+req.Archive.Name())
	deployment, err := step(ctx, w.timeout, func(ctx context.Context) (*client.Deployment, error) {
		return w.opts.API.Upload(ctx, client.UploadRequest{
			Archive:    req.Archive,
			Mode:       res.Mode,
			Entrypoint: override,
			Plan:       res.PlanName,
		})
	})
	if err != nil {
		return res, fmt.Errorf("uploading archive: %w", err)
	}
	res.Deployment = deployment
	w.banner(LevelSuccess, "Deployed "+deployment.AppID)

	if w.opts.FetchEntrypoints && deployment.AppID != "" {
		eps, err := step(ctx, w.timeout, func(ctx context.Context) (*client.Entrypoints, error) {
			return w.opts.API.Entrypoints(ctx, deployment.AppID)
		})
		if err != nil {
			w.log.Warn("fetching entrypoints failed", "app_id", deployment.AppID, "error", err)
			w.banner(LevelWarn, "Could not fetch entrypoints: "+Message(err))
		} else {
			res.Entrypoints = eps.Entrypoints
		}
	}

	return res, nil
}

// inspect runs the archive inspector and applies the override or the
// interactive choice, filling res.Inspection and res.Entrypoint.
func (w *Wizard) inspect(ctx context.Context, req Request, res *Result) error {
	insp := archive.NewInspector(archive.Options{
		ManualMode: res.Mode.Manual(),
		Cache:      w.opts.Cache,
		Extensions: w.opts.Extensions,
	})
	defer insp.Close()

	insp.Select(ctx, req.Archive)

	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := insp.Wait(waitCtx); err != nil {
		return fmt.Errorf("inspecting archive: %w", err)
	}
	res.Inspection = insp.Snapshot().Result
	if res.Inspection == nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("inspecting archive: %w", err)
		}
		return errors.New("inspecting archive: no result")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("inspecting archive: %w", err)
	}
	if len(res.Inspection.Entries) == 0 {
		return ErrEmptyArchive
	}

	switch {
	case req.Entrypoint != "":
		if err := insp.Choose(req.Entrypoint); err != nil {
			return fmt.Errorf("entrypoint %q: %w", req.Entrypoint, err)
		}
	case res.Mode.Manual() && req.Choose != nil && len(res.Inspection.Candidates) > 0:
		chosen, err := req.Choose(res.Inspection.Candidates)
		if err != nil {
			return err
		}
		if err := insp.Choose(chosen); err != nil {
			return fmt.Errorf("entrypoint %q: %w", chosen, err)
		}
	}

	res.Entrypoint = insp.Snapshot().Entrypoint
	if res.Mode.Manual() && res.Entrypoint == "" {
		return ErrNoEntrypoint
	}
	return nil
}

func (w *Wizard) record(req Request, res *Result, err error) {
	if w.opts.History == nil {
		return
	}

	rec := manifest.Record{
		Archive:    manifest.ArchiveRecord{Name: req.Archive.Name(), Size: req.Archive.Size()},
		Mode:       string(res.Mode),
		Entrypoint: res.Entrypoint,
		Plan:       res.PlanName,
		Err:        err,
	}
	if res.Inspection != nil {
		rec.Archive.SHA256 = res.Inspection.Digest
		rec.Candidates = res.Inspection.Candidates
	}
	if res.Deployment != nil {
		rec.AppID = res.Deployment.AppID
	}

	if _, lerr := w.opts.History.LogDeploy(rec); lerr != nil {
		w.log.Warn("failed to record deploy", "error", lerr)
	}
}

func (w *Wizard) banner(level Level, msg string) {
	w.opts.Observer.Banner(Banner{Level: level, Message: msg})
}

// step runs fn under its own timeout.
func step[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

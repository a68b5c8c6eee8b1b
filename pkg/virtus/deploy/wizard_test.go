package deploy_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuscloud/virtus/pkg/client"
	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/deploy"
	"github.com/virtuscloud/virtus/pkg/virtus/manifest"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

type fakeAPI struct {
	mu sync.Mutex

	session    *client.Session
	sessionErr error
	plan       *client.PlanStatus
	planErr    error
	deployment *client.Deployment
	uploadErr  error
	eps        *client.Entrypoints
	epsErr     error
	uploadWait time.Duration

	calls   []string
	uploads []client.UploadRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		session:    &client.Session{Email: "dev@example.com", Role: "owner"},
		plan:       &client.PlanStatus{Plan: "Starter", DeploymentsUsed: 1, DeploymentsLimit: 3},
		deployment: &client.Deployment{AppID: "app_1", Status: "queued"},
		eps:        &client.Entrypoints{AppID: "app_1", Entrypoints: []string{"main.py"}},
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) VerifySession(context.Context) (*client.Session, error) {
	f.record("session")
	return f.session, f.sessionErr
}

func (f *fakeAPI) PlanStatus(context.Context) (*client.PlanStatus, error) {
	f.record("plan")
	return f.plan, f.planErr
}

func (f *fakeAPI) Upload(ctx context.Context, req client.UploadRequest) (*client.Deployment, error) {
	f.record("upload")
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	if f.uploadWait > 0 {
		select {
		case <-time.After(f.uploadWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.deployment, nil
}

func (f *fakeAPI) Entrypoints(_ context.Context, appID string) (*client.Entrypoints, error) {
	f.record("entrypoints:" + appID)
	return f.eps, f.epsErr
}

type bannerLog struct {
	mu      sync.Mutex
	banners []deploy.Banner
}

func (b *bannerLog) Banner(x deploy.Banner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banners = append(b.banners, x)
}

func (b *bannerLog) last() deploy.Banner {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.banners[len(b.banners)-1]
}

func archiveHandle(t *testing.T, files ...string) types.Handle {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < len(files); i += 2 {
		w, err := zw.Create(files[i])
		require.NoError(t, err)
		_, err = w.Write([]byte(files[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return types.NewMemoryHandle("app.zip", buf.Bytes())
}

func newWizard(t *testing.T, api deploy.API, opts deploy.Options) (*deploy.Wizard, *bannerLog) {
	t.Helper()
	banners := &bannerLog{}
	opts.API = api
	opts.Observer = banners
	w, err := deploy.New(opts)
	require.NoError(t, err)
	return w, banners
}

func TestNew_RequiresAPI(t *testing.T) {
	_, err := deploy.New(deploy.Options{})
	assert.Error(t, err)
}

func TestRun_AutoMode(t *testing.T) {
	api := newFakeAPI()
	w, banners := newWizard(t, api, deploy.Options{})

	h := archiveHandle(t,
		"config.virtus", "entrypoint = main.py\n",
		"main.py", "print(1)",
		"worker.py", "",
	)

	res, err := w.Run(context.Background(), deploy.Request{Archive: h, Mode: types.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, []string{"session", "plan", "upload"}, api.calls)
	assert.Equal(t, "main.py", res.Entrypoint)
	assert.Equal(t, []string{"main.py", "worker.py"}, res.Inspection.Candidates)
	assert.Equal(t, "app_1", res.Deployment.AppID)
	assert.Equal(t, "Starter", res.PlanName)

	require.Len(t, api.uploads, 1)
	assert.Equal(t, types.ModeAuto, api.uploads[0].Mode)
	assert.Empty(t, api.uploads[0].Entrypoint, "auto mode without override sends no entrypoint")
	assert.Equal(t, "Starter", api.uploads[0].Plan)

	assert.Equal(t, deploy.LevelSuccess, banners.last().Level)
}

func TestRun_ManualMode(t *testing.T) {
	api := newFakeAPI()
	w, _ := newWizard(t, api, deploy.Options{})

	h := archiveHandle(t, "a.js", "", "b.js", "")

	res, err := w.Run(context.Background(), deploy.Request{Archive: h, Mode: types.ModeManual})
	require.NoError(t, err)

	assert.Equal(t, "a.js", res.Entrypoint)
	require.Len(t, api.uploads, 1)
	assert.Equal(t, types.ModeManual, api.uploads[0].Mode)
	assert.Equal(t, "a.js", api.uploads[0].Entrypoint)
}

func TestRun_ManualChooser(t *testing.T) {
	api := newFakeAPI()
	w, _ := newWizard(t, api, deploy.Options{})

	h := archiveHandle(t, "a.js", "", "b.js", "")

	var offered []string
	res, err := w.Run(context.Background(), deploy.Request{
		Archive: h,
		Mode:    types.ModeManual,
		Choose: func(c []string) (string, error) {
			offered = c
			return "b.js", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js"}, offered)
	assert.Equal(t, "b.js", res.Entrypoint)
	assert.Equal(t, "b.js", api.uploads[0].Entrypoint)
}

func TestRun_Override(t *testing.T) {
	api := newFakeAPI()
	w, _ := newWizard(t, api, deploy.Options{})

	h := archiveHandle(t, "config.virtus", "entrypoint = a.py\n", "a.py", "", "b.py", "")

	res, err := w.Run(context.Background(), deploy.Request{Archive: h, Mode: types.ModeAuto, Entrypoint: "b.py", Plan: "Pro"})
	require.NoError(t, err)
	assert.Equal(t, "b.py", res.Entrypoint)
	assert.Equal(t, "b.py", api.uploads[0].Entrypoint)
	assert.Equal(t, "Pro", api.uploads[0].Plan)
}

func TestRun_OverrideMustBeCandidate(t *testing.T) {
	api := newFakeAPI()
	w, _ := newWizard(t, api, deploy.Options{})

	h := archiveHandle(t, "a.py", "", "notes.txt", "")

	_, err := w.Run(context.Background(), deploy.Request{Archive: h, Entrypoint: "notes.txt"})
	assert.ErrorIs(t, err, archive.ErrNotCandidate)
	assert.NotContains(t, api.calls, "upload")
}

func TestRun_ManualWithoutCandidates(t *testing.T) {
	api := newFakeAPI()
	w, banners := newWizard(t, api, deploy.Options{})

	h := archiveHandle(t, "readme.md", "hi")

	_, err := w.Run(context.Background(), deploy.Request{Archive: h, Mode: types.ModeManual})
	assert.ErrorIs(t, err, deploy.ErrNoEntrypoint)
	assert.NotContains(t, api.calls, "upload")
	assert.Equal(t, deploy.LevelError, banners.last().Level)
}

func TestRun_UnreadableArchiveIsNotUploaded(t *testing.T) {
	for name, h := range map[string]types.Handle{
		"empty":   archiveHandle(t),
		"garbage": types.NewMemoryHandle("app.zip", []byte("not a zip")),
	} {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI()
			w, banners := newWizard(t, api, deploy.Options{})

			res, err := w.Run(context.Background(), deploy.Request{Archive: h, Mode: types.ModeAuto})
			assert.ErrorIs(t, err, deploy.ErrEmptyArchive)
			assert.Equal(t, []string{"session", "plan"}, api.calls)
			require.NotNil(t, res.Inspection)
			assert.Empty(t, res.Inspection.Entries)
			assert.Equal(t, deploy.LevelError, banners.last().Level)
		})
	}
}

func TestRun_CanceledContext(t *testing.T) {
	api := newFakeAPI()
	w, _ := newWizard(t, api, deploy.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Run(ctx, deploy.Request{Archive: archiveHandle(t, "main.py", "")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, api.calls, "upload")
}

func TestRun_PlanLimit(t *testing.T) {
	api := newFakeAPI()
	api.plan = &client.PlanStatus{Plan: "Free", DeploymentsUsed: 1, DeploymentsLimit: 1}
	w, _ := newWizard(t, api, deploy.Options{})

	res, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "a.go", "")})
	assert.ErrorIs(t, err, deploy.ErrPlanLimitReached)
	assert.Equal(t, []string{"session", "plan"}, api.calls)
	require.NotNil(t, res)
	assert.Nil(t, res.Inspection)
}

func TestRun_SessionError(t *testing.T) {
	api := newFakeAPI()
	api.sessionErr = &client.APIError{StatusCode: http.StatusUnauthorized, Message: "token expired"}
	w, banners := newWizard(t, api, deploy.Options{})

	_, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "a.go", "")})
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))

	b := banners.last()
	assert.Equal(t, deploy.LevelError, b.Level)
	assert.Equal(t, "token expired", b.Message)
}

func TestRun_NoArchive(t *testing.T) {
	api := newFakeAPI()
	w, _ := newWizard(t, api, deploy.Options{})

	_, err := w.Run(context.Background(), deploy.Request{})
	assert.ErrorIs(t, err, deploy.ErrNoArchive)
	assert.Empty(t, api.calls)
}

func TestRun_UploadTimeout(t *testing.T) {
	api := newFakeAPI()
	api.uploadWait = time.Second
	w, _ := newWizard(t, api, deploy.Options{Timeout: 50 * time.Millisecond})

	_, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "a.go", "")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_FetchEntrypoints(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := newFakeAPI()
		w, _ := newWizard(t, api, deploy.Options{FetchEntrypoints: true})

		res, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "main.py", "")})
		require.NoError(t, err)
		assert.Equal(t, []string{"main.py"}, res.Entrypoints)
		assert.Contains(t, api.calls, "entrypoints:app_1")
	})

	t.Run("failure is a warning", func(t *testing.T) {
		api := newFakeAPI()
		api.epsErr = errors.New("unavailable")
		w, banners := newWizard(t, api, deploy.Options{FetchEntrypoints: true})

		res, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "main.py", "")})
		require.NoError(t, err)
		assert.Nil(t, res.Entrypoints)
		assert.Equal(t, deploy.LevelWarn, banners.last().Level)
	})
}

func TestRun_RecordsHistory(t *testing.T) {
	hist, err := manifest.New(t.TempDir())
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		api := newFakeAPI()
		w, _ := newWizard(t, api, deploy.Options{History: hist})

		_, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "main.py", ""), Mode: types.ModeManual})
		require.NoError(t, err)
	})

	t.Run("failure", func(t *testing.T) {
		api := newFakeAPI()
		api.uploadErr = &client.APIError{StatusCode: http.StatusBadRequest, Message: "bad archive"}
		w, _ := newWizard(t, api, deploy.Options{History: hist})

		_, err := w.Run(context.Background(), deploy.Request{Archive: archiveHandle(t, "main.py", "")})
		require.Error(t, err)
	})

	entries, err := hist.List(manifest.OpDeploy, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byStatus := map[manifest.Status]manifest.Entry{}
	for _, e := range entries {
		byStatus[e.Status] = e
	}

	ok := byStatus[manifest.StatusOK]
	assert.Equal(t, "app_1", ok.AppID)
	assert.Equal(t, "manual", ok.Mode)
	assert.Equal(t, "main.py", ok.Entrypoint)
	assert.Equal(t, "app.zip", ok.Archive.Name)
	assert.Equal(t, []string{"main.py"}, ok.Candidates)

	failed := byStatus[manifest.StatusFailed]
	assert.Contains(t, failed.Error, "bad archive")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "quota", deploy.Message(&client.APIError{StatusCode: 402, Message: "quota"}))
	assert.Equal(t, "plain", deploy.Message(errors.New("plain")))
}

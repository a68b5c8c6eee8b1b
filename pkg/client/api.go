package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

// RequestIDHeader carries a per-upload identifier for server-side tracing.
const RequestIDHeader = "X-Request-Id"

// Session is the authenticated user.
type Session struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// PlanStatus reports deployment quota usage.
type PlanStatus struct {
	Plan             string `json:"plan"`
	DeploymentsUsed  int    `json:"deployments_used"`
	DeploymentsLimit int    `json:"deployments_limit"`
}

// Exhausted reports whether no deployments remain.
func (p *PlanStatus) Exhausted() bool {
	return p.DeploymentsUsed >= p.DeploymentsLimit
}

// Remaining returns the number of deployments left, never negative.
func (p *PlanStatus) Remaining() int {
	if p.Exhausted() {
		return 0
	}
	return p.DeploymentsLimit - p.DeploymentsUsed
}

// UploadRequest describes an archive upload.
type UploadRequest struct {
	Archive types.Handle
	Mode    types.Mode
	// Entrypoint is sent only when non-empty.
	Entrypoint string
	Plan       string
}

// Deployment is the server's answer to an upload.
type Deployment struct {
	AppID   string `json:"app_id"`
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// Entrypoints lists the entrypoints the server detected for an app.
type Entrypoints struct {
	AppID       string   `json:"app_id"`
	Entrypoints []string `json:"entrypoints"`
}

// VerifySession fetches the current session. A session without a role is
// rejected.
func (c *Client) VerifySession(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.get(ctx, "/api/auth/session", &s); err != nil {
		return nil, err
	}
	if s.Role == "" {
		return nil, errors.New("session has no role")
	}
	return &s, nil
}

// PlanStatus fetches quota usage for the account.
func (c *Client) PlanStatus(ctx context.Context) (*PlanStatus, error) {
	var p PlanStatus
	if err := c.get(ctx, "/api/plan/status", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Entrypoints fetches the entrypoints detected for appID.
func (c *Client) Entrypoints(ctx context.Context, appID string) (*Entrypoints, error) {
	if appID == "" {
		return nil, errors.New("app id is required")
	}
	var e Entrypoints
	if err := c.get(ctx, "/api/apps/"+url.PathEscape(appID)+"/entrypoints", &e); err != nil {
		return nil, err
	}
	if e.AppID == "" {
		e.AppID = appID
	}
	if e.Entrypoints == nil {
		e.Entrypoints = []string{}
	}
	return &e, nil
}

// Upload streams the archive as multipart/form-data to the deploy endpoint.
// Uploads are never retried.
func (c *Client) Upload(ctx context.Context, up UploadRequest) (*Deployment, error) {
	if up.Archive == nil {
		return nil, errors.New("no archive to upload")
	}
	mode := up.Mode
	if mode == "" {
		mode = types.ModeAuto
	}

	src, err := up.Archive.Open()
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// The writer must be done with src before the deferred Close runs;
	// closing pr unblocks it when the request ends early.
	written := make(chan struct{})
	defer func() {
		_ = pr.Close()
		<-written
	}()
	go func() {
		defer close(written)
		pw.CloseWithError(writeForm(mw, up, mode, io.NewSectionReader(src, 0, up.Archive.Size())))
	}()

	var query url.Values
	if up.Plan != "" {
		query = url.Values{"plan": {up.Plan}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/deploy", query), pr)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	logger.Info("uploading archive",
		"name", up.Archive.Name(),
		"size", up.Archive.Size(),
		"mode", mode,
		"entrypoint", up.Entrypoint,
		"request_id", requestID,
	)

	var d Deployment
	if err := c.do(req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func writeForm(mw *multipart.Writer, up UploadRequest, mode types.Mode, archive io.Reader) error {
	part, err := mw.CreateFormFile("file", up.Archive.Name())
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, archive); err != nil {
		return err
	}
	if err := mw.WriteField("mode", string(mode)); err != nil {
		return err
	}
	if up.Entrypoint != "" {
		if err := mw.WriteField("entrypoint", up.Entrypoint); err != nil {
			return err
		}
	}
	return mw.Close()
}

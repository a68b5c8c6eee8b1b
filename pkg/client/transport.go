package client

import (
	"errors"
	"net/http"
	"time"
)

const (
	defaultRetryMax     = 2
	defaultRetryBackoff = 200 * time.Millisecond
)

// Transport adds bearer authentication, a user agent and bounded retries
// to an underlying RoundTripper.
//
// Only replayable requests are retried: GET or HEAD without a body. A
// request is retried on a transport error or a 502, 503 or 504 response.
type Transport struct {
	Base http.RoundTripper

	Token     string
	UserAgent string

	// RetryMax is the number of retries after the first attempt.
	RetryMax int
	// Backoff is the delay before the first retry. It doubles per attempt.
	Backoff time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && (req.Body == nil || req.Body == http.NoBody)
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}
	backoff := t.Backoff

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		r := req.Clone(req.Context())
		if t.Token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+t.Token)
		}
		if t.UserAgent != "" && r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}

		resp, err = base.RoundTrip(r)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			logger.Debug("request failed", "method", req.Method, "url", req.URL.Redacted(), "attempt", attempt+1, "error", err)
			continue
		}
		if !retryableStatus(resp.StatusCode) || attempt == max {
			return resp, nil
		}
		logger.Debug("retrying after server error", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode)
		_ = resp.Body.Close()
	}
	return resp, err
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps how much of an API response is retained.
const maxBodyBytes = 1 << 20

// RESTDispatcher posts credentials as JSON to the endpoint URL.
type RESTDispatcher struct {
	client *http.Client
	logger zerolog.Logger
}

// NewRESTDispatcher builds a dispatcher whose requests time out after timeout.
// A zero timeout leaves requests bounded only by the caller's context.
func NewRESTDispatcher(timeout time.Duration, logger zerolog.Logger) *RESTDispatcher {
	return NewRESTDispatcherWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewRESTDispatcherWithClient uses the supplied client as is.
func NewRESTDispatcherWithClient(client *http.Client, logger zerolog.Logger) *RESTDispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTDispatcher{client: client, logger: logger}
}

func (d *RESTDispatcher) Post(ctx context.Context, endpoint Endpoint, creds Credentials) (*Response, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint.Name, err)
	}

	d.logger.Debug().
		Str("endpoint", endpoint.Name).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("auth api responded")

	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Endpoint: endpoint.Name, Status: resp.StatusCode, Body: body}
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

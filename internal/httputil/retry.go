package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/volatria/volatria-backend/internal/retry"
)

// DefaultRetry retries transport errors and 5xx responses with exponential backoff.
var DefaultRetry = retry.Policy{
	MaxAttempts: 3,
	Backoff:     retry.Exponential(1*time.Second, 10*time.Second),
}

// Do executes an HTTP request under policy. Responses below 500 are returned to
// the caller without retrying; 5xx responses and transport errors are retried.
// The buildReq function is called on each attempt to produce a fresh request
// (required because request bodies are consumed on each attempt).
func Do(ctx context.Context, client *http.Client, policy retry.Policy, buildReq func() (*http.Request, error)) (*http.Response, error) {
	var out *http.Response
	err := policy.Do(ctx, func(ctx context.Context) error {
		resp, err := send(client, buildReq)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DoDecode is Do with the response handling inside the retry loop, so decode
// can ask for another attempt by returning a plain error or stop with
// retry.Permanent. The response body is closed after decode returns.
func DoDecode(ctx context.Context, client *http.Client, policy retry.Policy, buildReq func() (*http.Request, error), decode func(resp *http.Response) error) error {
	return policy.Do(ctx, func(ctx context.Context) error {
		resp, err := send(client, buildReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return decode(resp)
	})
}

func send(client *http.Client, buildReq func() (*http.Request, error)) (*http.Response, error) {
	req, err := buildReq()
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

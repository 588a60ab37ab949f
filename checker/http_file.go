package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Cap on redirect chains when fetching the proof file.
const maxRedirects = 5

// Read up to 64,000 bytes of proof file body.
const maxBodyBytes = 64000

// checkHTTPFile fetches https://<domain>/<resourceName> and compares the body
// against the expected token. Transport failures over HTTPS are retried once
// over plain HTTP: the file's content is public and its value is unguessable,
// so a cleartext fetch proves control just as well.
func (c *Checker) checkHTTPFile(ctx context.Context, req Request) ProbeResult {
	result, err := c.fetchAndCompare(ctx, fmt.Sprintf("https://%s/%s", req.Domain, req.ResourceName), req.Token)
	if err == nil {
		return result
	}
	result, retryErr := c.fetchAndCompare(ctx, fmt.Sprintf("http://%s/%s", req.Domain, req.ResourceName), req.Token)
	if retryErr == nil {
		return result
	}
	return transportFailure("could not fetch proof file from %s: %v", req.Domain, err)
}

// fetchAndCompare returns an error only for transport-level failures, so the
// caller can decide to retry on another scheme. Anything the server actually
// said (wrong status, wrong body) comes back as a ProbeResult.
func (c *Checker) fetchAndCompare(ctx context.Context, url string, expected string) (ProbeResult, error) {
	client := c.client
	if client == nil {
		client = &http.Client{
			Timeout: c.timeout(),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{}, err
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return ProbeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return notProven("proof file at %s returned %s", url, resp.Status), nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ProbeResult{}, err
	}
	if strings.TrimSpace(string(body)) == strings.TrimSpace(expected) {
		return matched(), nil
	}
	return mismatch("proof file at %s does not contain the expected token", url), nil
}

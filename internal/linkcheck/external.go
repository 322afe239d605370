package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

const userAgent = "pagefold-linkcheck/1.0"

// ExternalResult is the outcome of checking one outbound URL.
type ExternalResult struct {
	URL    string
	Status int
	Err    string // empty when the URL is reachable
}

// OK reports whether the URL counted as reachable.
func (r ExternalResult) OK() bool { return r.Err == "" }

// Checker HEAD-checks external URLs with bounded concurrency. Responses
// demanding credentials (401, 403, 405) count as reachable: the URL exists,
// pagefold just cannot see behind it.
type Checker struct {
	client *http.Client
	sem    chan struct{}
}

// NewChecker creates a checker with the given per-request timeout and
// concurrency bound.
func NewChecker(timeout time.Duration, maxConcurrent int) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Checker{
		client: &http.Client{Timeout: timeout},
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Check verifies the given URLs. Duplicates are checked once. Results come
// back sorted by URL; only failures carry a non-empty Err.
func (c *Checker) Check(ctx context.Context, urls []string) []ExternalResult {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	results := make([]ExternalResult, len(unique))
	var wg sync.WaitGroup
	for i, u := range unique {
		select {
		case <-ctx.Done():
			results[i] = ExternalResult{URL: u, Err: ctx.Err().Error()}
			continue
		case c.sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-c.sem }()
			results[i] = c.checkOne(ctx, u)
		}(i, u)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })
	return results
}

func (c *Checker) checkOne(ctx context.Context, rawURL string) ExternalResult {
	status, err := c.request(ctx, http.MethodHead, rawURL)
	if err != nil {
		return ExternalResult{URL: rawURL, Err: err.Error()}
	}
	if statusReachable(status) {
		return ExternalResult{URL: rawURL, Status: status}
	}

	// Some servers reject HEAD outright. Retry once with GET before
	// declaring the URL broken.
	status, err = c.request(ctx, http.MethodGet, rawURL)
	if err != nil {
		return ExternalResult{URL: rawURL, Err: err.Error()}
	}
	if statusReachable(status) {
		return ExternalResult{URL: rawURL, Status: status}
	}
	return ExternalResult{URL: rawURL, Status: status, Err: fmt.Sprintf("HTTP %d", status)}
}

func (c *Checker) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// statusReachable reports statuses that prove the URL exists: success and
// redirect codes, credential walls (401, 403, 405) and rate limiting (429).
func statusReachable(status int) bool {
	if status < 400 {
		return true
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusMethodNotAllowed, http.StatusTooManyRequests:
		return true
	}
	return false
}

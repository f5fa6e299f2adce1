package docusaurus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxPageBytes        = 5 << 20
)

// Fetcher downloads corpus pages with a hard cap on concurrent requests,
// so a full reindex does not hammer the documentation host.
type Fetcher struct {
	httpClient *http.Client
	sem        *semaphore.Weighted
	userAgent  string
}

func NewFetcher(concurrency int64, userAgent string) *Fetcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	if userAgent == "" {
		userAgent = "bookrag-indexer/1.0"
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: defaultFetchTimeout},
		sem:        semaphore.NewWeighted(concurrency),
		userAgent:  userAgent,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer f.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

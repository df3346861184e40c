package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultCoverTimeout = 20 * time.Second
	defaultCoverMaxSize = 10 << 20
)

// CoverSource downloads cover artwork by URL.
type CoverSource struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewCoverSource creates a cover fetcher. A zero timeout or maxBytes takes
// the default.
func NewCoverSource(timeout time.Duration, maxBytes int64, userAgent string) *CoverSource {
	if timeout <= 0 {
		timeout = defaultCoverTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultCoverMaxSize
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &CoverSource{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch returns the body at url. A non-2xx response yields (nil, nil).
// Partially read bodies are never returned.
func (c *CoverSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cover request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("cover exceeds %d bytes", c.maxBytes)
	}
	return data, nil
}

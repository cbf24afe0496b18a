// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDocumentBytes bounds the metadata response body.
const maxDocumentBytes = 1 << 20

// Fetcher retrieves the current metadata document.
type Fetcher interface {
	Fetch(ctx context.Context) (Document, error)
}

// Client fetches the metadata document over HTTP.
type Client struct {
	url  string
	http *http.Client
}

// NewClient returns a Client for the given endpoint. A nil httpClient gets a
// plain client with a 10s timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Fetch issues GET <url> and returns the validated document.
func (c *Client) Fetch(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch metadata: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxDocumentBytes))
		return Document{}, fmt.Errorf("%w: %d", ErrStatus, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read metadata body: %w", err)
	}
	return Parse(body)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (Document, error)

// Fetch calls f(ctx).
func (f FetcherFunc) Fetch(ctx context.Context) (Document, error) {
	return f(ctx)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package errmon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSinkStatus is returned when the backend answers with a non-2xx status.
var ErrSinkStatus = errors.New("error sink rejected report")

// Report is the payload accepted by the backend error sink.
type Report struct {
	SessionID string         `json:"session_id"`
	Source    Source         `json:"source"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Sink receives error reports. Any returned error counts against the breaker.
type Sink interface {
	Send(ctx context.Context, r Report) error
}

// Reporter is a third-party monitoring hook. It is called for every tracked
// error regardless of the backend breaker.
type Reporter interface {
	Capture(ctx context.Context, e TrackedError) error
}

// HTTPSink posts reports as JSON to <base>/api/errors.
type HTTPSink struct {
	endpoint string
	http     *http.Client
}

// NewHTTPSink creates a sink for the given backend base URL.
func NewHTTPSink(baseURL string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSink{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/errors",
		http:     client,
	}
}

// Send posts a single report.
func (s *HTTPSink) Send(ctx context.Context, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode error report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build error report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post error report: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrSinkStatus, res.StatusCode)
	}
	return nil
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, r Report) error

// Send calls f(ctx, r).
func (f SinkFunc) Send(ctx context.Context, r Report) error { return f(ctx, r) }

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, e TrackedError) error

// Capture calls f(ctx, e).
func (f ReporterFunc) Capture(ctx context.Context, e TrackedError) error { return f(ctx, e) }

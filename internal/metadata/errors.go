// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metadata

import "errors"

var (
	// ErrInvalidDocument classifies metadata documents that fail schema validation.
	// Use errors.Is(err, ErrInvalidDocument) instead of string matching.
	ErrInvalidDocument = errors.New("invalid metadata document")

	// ErrStatus is returned for non-2xx responses from the metadata endpoint.
	ErrStatus = errors.New("unexpected metadata response status")

	// ErrStopped is returned once the poller has given up or been stopped.
	ErrStopped = errors.New("metadata polling stopped")

	// ErrSuperseded marks a fetch whose result was discarded because a newer
	// fetch was issued before it completed.
	ErrSuperseded = errors.New("metadata fetch superseded")
)

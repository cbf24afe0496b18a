// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldErrorID   = "error_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Stream fields
	FieldStreamURL   = "stream_url"
	FieldMetadataURL = "metadata_url"
	FieldBitrate     = "bitrate"
	FieldGeneration  = "generation"

	// Track fields
	FieldTitle  = "title"
	FieldArtist = "artist"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Error monitor fields
	FieldSource   = "source"
	FieldSeverity = "severity"
)

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPURLKey        = "http.url"

	MetadataGenerationKey = "metadata.generation"
	MetadataFailuresKey   = "metadata.failures"
	MetadataTitleKey      = "metadata.title"
	MetadataArtistKey     = "metadata.artist"

	ErrorSourceKey   = "error.source"
	ErrorSeverityKey = "error.severity"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// MetadataAttributes describes a metadata fetch.
func MetadataAttributes(generation uint64, failures int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(MetadataGenerationKey, int64(generation)),
		attribute.Int(MetadataFailuresKey, failures),
	}
}

// TrackAttributes describes the track carried by a metadata document.
func TrackAttributes(title, artist string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if title != "" {
		attrs = append(attrs, attribute.String(MetadataTitleKey, title))
	}
	if artist != "" {
		attrs = append(attrs, attribute.String(MetadataArtistKey, artist))
	}
	return attrs
}

// ErrorReportAttributes describes a forwarded error report.
func ErrorReportAttributes(source, severity string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ErrorSourceKey, source),
		attribute.String(ErrorSeverityKey, severity),
	}
}

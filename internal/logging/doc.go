// Package logging provides slog construction and shared structured-field
// conventions. The console handler renders compact single-line output for
// interactive use; the JSON handler is intended for ingestion.
package logging

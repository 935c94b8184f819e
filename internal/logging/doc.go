// Package logging wraps log/slog with the handlers and attribute helpers used
// across storyreel. Console output is a compact single-line format; JSON output
// is used for non-interactive runs. Story, stage, and correlation identifiers
// travel on the context and are attached via WithContext.
package logging

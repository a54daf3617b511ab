// Package diag defines the diagnostic model shared by all midend passes.
//
// Diagnostic is the central record: a Severity, a stable numeric Code, a
// short message, a primary source.Span, and optional notes. Producers emit
// diagnostics through a Reporter so that storage and formatting stay
// decoupled; BagReporter aggregates into a bounded Bag that supports
// sorting and deduplication.
//
// Severities follow the pass-driver contract: SevError diagnostics
// accumulate and are checked at batch boundaries, while SevBug marks an
// internal invariant violation and aborts immediately (see Bugf).
// Rendering lives in internal/diagfmt.
package diag

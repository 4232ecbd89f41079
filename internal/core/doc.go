// Package core provides the analysis pipeline behind the dashboard.
//
// This package ties the loader, the item extractor and the frequency
// reporter together, independent of any transport. It is used by the web
// handlers, by the startup check in cmd/server, and by tests.
//
// # Pipeline
//
// [Service.Analyze] runs one pass from scratch:
//
//  1. dataset.Load reads the semicolon-delimited file into a table
//  2. extract.Extract picks the item column through its ordered strategies
//  3. frequency.Compute counts, normalizes and sorts
//
// The result is an [Analysis] owned by the caller. Nothing is cached between
// calls; concurrent calls are bounded by an [AnalysisLimiter].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE004: Dataset errors (missing, malformed, empty, unreadable)
//   - ITEM001, FREQ001: Analysis errors (no item column, nothing counted)
//   - HIST001-HIST002: Run history errors
//   - REQ001-REQ002, RATE001-RATE002: Request errors (cancelled, timeout, busy)
//
// # Run History
//
// Successful non-empty analyses are recorded in the configured
// history.Store. Recording is best effort and never fails an analysis.
package core

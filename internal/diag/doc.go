// Package diag defines the diagnostic model shared by the snapshot loader,
// program validation, and code generation.
//
// Diagnostic is the central record: severity, a stable numeric code, a message,
// the primary source span, and optional notes pointing at related spans.
// Producers emit through a Reporter (usually BagReporter, which aggregates into
// a Bag); the Bag supports capping, sorting, and deduplication so CLI output is
// deterministic. Rendering lives with the CLI, not here.
//
// Codes are grouped by pipeline phase: 1xxx snapshot, 2xxx program validation,
// 3xxx code generation. The string form ("SNP1002") is stable and safe to use
// in golden output and scripts.
package diag

// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp file digests, stage names, run types, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (configuration, external tool, transport,
//     invalid response, and so on).
//   - Hint lookup that turns a classified failure into a corrective action for
//     the CLI.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services

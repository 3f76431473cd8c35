// Package services defines shared utilities consumed by the transcode
// scheduler, the media service and the engine adapter.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, video IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is instead of string matching.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the daemon.
package services

// Package daemon coordinates the long-running videoforge process.
//
// It wires configuration, task storage, the transcode scheduler and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. On start the daemon requeues tasks a previous run left
// PROCESSING, then starts the scheduler and the gin API server; on stop it
// reverses that order and waits a bounded grace period for in-flight
// encodes.
//
// Keep orchestration here: scheduling lives in workflow and request
// semantics live in api. Handlers in this package only translate HTTP to
// those services and map classified errors to status codes.
package daemon

// Package workflow runs the transcode scheduler.
//
// The Manager polls the task repository for the oldest QUEUED task, claims it
// atomically and dispatches the encode on its own goroutine while fewer than
// the configured number of tasks are in flight. Each encode streams progress
// through a per-task throttle into the repository, and finishes by writing a
// COMPLETED row or applying the retry policy (re-queue up to max_retries,
// then FAILED).
//
// Recover requeues tasks a previous process left PROCESSING and must run
// before Start. Stop only halts claiming; encodes already in flight keep
// running under the context passed to Start.
package workflow

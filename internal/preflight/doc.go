// Package preflight provides readiness checks for the filesystem, external
// binaries, the optional event broker and host capacity.
//
// These checks run in two contexts:
//   - The daemon and the "videoforge deps" command report directory, binary
//     and broker health through RunAll.
//   - The transcode scheduler consults a CapacityGate before each claim when
//     [resources] is enabled, so a saturated host stops taking new work
//     instead of starting encodes that will crawl.
package preflight

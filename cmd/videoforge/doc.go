// Package main hosts the videoforge CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground and offers local
// maintenance against the same SQLite task database: importing sources,
// queueing variants, inspecting and deleting tasks, crash recovery and
// dependency checks. The database runs in WAL mode so these commands are
// safe while the daemon is running; recovery is refused while the daemon
// holds its lock.
package main

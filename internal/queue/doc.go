// Package queue persists uploaded videos and their encode tasks in SQLite and
// exposes the task repository the transcode scheduler drives.
//
// The Store manages the database connection, schema initialization, FIFO task
// lookup, the atomic QUEUED to PROCESSING claim, partial task updates and the
// bulk crash-recovery requeue. Rows are the single source of truth for task
// state; the scheduler keeps no in-memory copy beyond its in-flight counter.
//
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package queue

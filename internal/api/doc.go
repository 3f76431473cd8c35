// Package api defines the transport DTOs and the services behind the HTTP
// handlers and CLI commands.
//
// # Key Types
//
// Video and Task: camelCase JSON views of queue rows. Task carries a
// downloadUrl once COMPLETED.
//
// WorkflowStatus and DaemonStatus: scheduler and daemon runtime state with
// dependency checks.
//
// # Services
//
// MediaService owns the upload directory and processed directory together
// with the video and task rows: Upload, CreateTasks, ListVideos, Video,
// DownloadPath, DeleteTask and Clear. Errors are tagged with the services
// markers so transports can map them to status codes.
//
// QueueService is the read-only view used for task listings and stats.
//
// Timestamps are RFC3339 UTC with milliseconds.
package api

package queue

import "errors"

var (
	// ErrTaskNotFound is returned when a task row does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrVideoNotFound is returned when a video row does not exist.
	ErrVideoNotFound = errors.New("video not found")
)

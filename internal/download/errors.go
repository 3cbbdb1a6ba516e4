package download

import "errors"

var (
	// ErrNetwork is returned when the request fails or the server answers
	// with anything but 200 OK.
	ErrNetwork = errors.New("download: network failure")

	// ErrWrite is returned when the destination file cannot be created or written.
	ErrWrite = errors.New("download: write failed")

	// ErrCancelled is returned when the task was cancelled before completion.
	ErrCancelled = errors.New("download: cancelled")
)

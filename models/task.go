package models

import (
	"io"

	"github.com/google/uuid"
)

// Upload task status
const (
	TaskStatusQueued    = "queued"
	TaskStatusUploading = "uploading"
	TaskStatusProgress  = "progress"
	TaskStatusCompleted = "completed"
	TaskStatusError     = "error"
)

// FileRef is a local file handed to the upload orchestrator.
type FileRef struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// UploadTask tracks one asynchronous file upload. The token is never
// reused; a failed task is dropped and a retry is a brand new task.
type UploadTask struct {
	Token    uuid.UUID
	File     FileRef
	Category UploadCategory
	Progress int // 0-100
	Status   string
	URL      string // set once completed
	Err      error  // set on error
}

// TaskEvent is emitted on every task state change, progress ticks
// included. Completion events are what the dispatcher turns into draft
// merges; the rest exist for subscribers rendering per-file state.
type TaskEvent struct {
	Token    uuid.UUID
	Category UploadCategory
	FileName string
	Status   string
	Progress int
	URL      string
	Size     int64
	Err      error
}

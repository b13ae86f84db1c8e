package model

// TaskStatus represents the status of a download, watermark or remux task
type TaskStatus string

const (
	// TaskStatusPending means the task is created but not started
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusStarting means the task is in the process of starting
	TaskStatusStarting TaskStatus = "Starting"

	// TaskStatusDownloading means the download is in progress
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusProcessing means frames or streams are being processed
	TaskStatusProcessing TaskStatus = "Processing"

	// TaskStatusStopped means the task was cancelled through its context
	TaskStatusStopped TaskStatus = "Stopped"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusError means the task failed with an error
	TaskStatusError TaskStatus = "Error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task is in an active state
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusStarting || ts == TaskStatusDownloading || ts == TaskStatusProcessing
}

// IsFinished returns true if the task is in a finished state (completed, stopped, or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusStopped || ts == TaskStatusError
}

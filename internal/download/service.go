package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/model"
)

// Defaults for yt-dlp invocations
const (
	DefaultVideoFormat = "bestvideo[height<=1080]+bestaudio/best"
	DefaultAudioFormat = "mp3"
	MergeFormatMP4     = "mp4"
	TaskIDPrefix       = "task-"
)

// Retry policy for yt-dlp runs
const (
	DefaultMaxRetries = 1
	DefaultRetryDelay = 2 * time.Second
)

// Service handles download operations
type Service struct {
	tasks       map[string]*model.DownloadTask
	tasksMutex  sync.RWMutex
	downloadDir string
	runner      StreamRunner
	httpClient  *http.Client
	maxRetries  int
	retryDelay  time.Duration
	onUpdate    func(*model.DownloadTask) // callback for console updates
}

// NewService creates a new download service writing relative paths under
// downloadDir. A nil httpClient selects http.DefaultClient.
func NewService(downloadDir string, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Service{
		tasks:       make(map[string]*model.DownloadTask),
		downloadDir: downloadDir,
		runner:      YTDLPRunner{},
		httpClient:  httpClient,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
	}
}

// SetRunner replaces the yt-dlp runner
func (s *Service) SetRunner(runner StreamRunner) {
	s.runner = runner
}

// SetRetryPolicy configures how often and how long to wait between yt-dlp attempts
func (s *Service) SetRetryPolicy(maxRetries int, delay time.Duration) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	s.maxRetries = maxRetries
	s.retryDelay = delay
}

// SetDownloadDirectory sets the download directory
func (s *Service) SetDownloadDirectory(dir string) {
	s.downloadDir = dir
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.onUpdate = callback
}

// GetTask returns a task by ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	return task, exists
}

// GetAllTasks returns all tasks
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	return tasks
}

// DownloadVideo downloads url with yt-dlp into savePath. An empty format
// selects DefaultVideoFormat.
func (s *Service) DownloadVideo(ctx context.Context, url, savePath, format string) (*model.DownloadTask, error) {
	if format == "" {
		format = DefaultVideoFormat
	}
	task := s.newTask(url, model.ContentVideo, s.resolvePath(savePath))
	req := StreamRequest{URL: url, OutputPath: task.OutputPath, Format: format}
	return task, s.runStream(ctx, task, req, "video")
}

// DownloadAudio downloads the audio track of url with yt-dlp into savePath.
// yt-dlp names the intermediate file itself; the converted track always ends
// up at savePath.
func (s *Service) DownloadAudio(ctx context.Context, url, savePath string) (*model.DownloadTask, error) {
	path := s.resolvePath(savePath)
	task := s.newTask(url, model.ContentAudio, path)
	req := StreamRequest{URL: url, OutputPath: audioTemplate(path), AudioOnly: true, AudioFormat: DefaultAudioFormat}

	err := s.runStream(ctx, task, req, "audio")

	s.tasksMutex.Lock()
	task.OutputPath = path
	s.tasksMutex.Unlock()
	return task, err
}

// audioTemplate turns path into a yt-dlp output template whose extension is
// filled in by yt-dlp
func audioTemplate(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".%(ext)s"
}

// runStream drives one yt-dlp task to completion
func (s *Service) runStream(ctx context.Context, task *model.DownloadTask, req StreamRequest, what string) error {
	logger := logging.FromContext(ctx)

	s.setStatus(task, model.TaskStatusStarting)
	s.setStatus(task, model.TaskStatusDownloading)

	written, err := s.downloadWithRetry(ctx, task, req)
	if err != nil {
		s.finish(task, err)
		logger.Error("error downloading "+what, "url", task.URL, "err", err)
		return fmt.Errorf("%w: failed to download %s: %w", model.ErrDownload, what, err)
	}

	if written != "" {
		s.tasksMutex.Lock()
		task.OutputPath = written
		s.tasksMutex.Unlock()
	}
	s.finish(task, nil)

	logger.Info(what+" downloaded successfully", "path", task.OutputPath)
	return nil
}

// downloadWithRetry attempts download with retry logic
func (s *Service) downloadWithRetry(ctx context.Context, task *model.DownloadTask, req StreamRequest) (string, error) {
	logger := logging.FromContext(ctx)
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// Backoff delay
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}

			logger.Info("retrying download", "task", task.ID, "attempt", attempt+1)
		}

		written, err := s.runner.Run(ctx, req, func(update ytdlp.ProgressUpdate) {
			s.updateTaskProgress(task, &update)
		})
		if err == nil {
			return written, nil
		}

		lastErr = err
		logger.Warn("download attempt failed", "task", task.ID, "attempt", attempt+1, "err", err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

// updateTaskProgress updates task progress from yt-dlp info
func (s *Service) updateTaskProgress(task *model.DownloadTask, update *ytdlp.ProgressUpdate) {
	s.tasksMutex.Lock()

	if update.TotalBytes > 0 {
		percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
		task.Percent = int(percent)
		task.Progress = percent / 100.0
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started)
		if elapsed.Seconds() > 0 {
			bytesPerSecond := float64(update.DownloadedBytes) / elapsed.Seconds()
			task.Speed = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
		}
	}

	if eta := update.ETA(); eta > 0 {
		task.ETASec = int(eta.Seconds())
	}

	if update.Info != nil && update.Info.Title != nil && *update.Info.Title != "" && task.Title == "" {
		task.Title = *update.Info.Title
	}
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
}

func (s *Service) newTask(url string, contentType model.ContentType, outputPath string) *model.DownloadTask {
	task := &model.DownloadTask{
		ID:          generateTaskID(),
		URL:         url,
		ContentType: contentType,
		Status:      model.TaskStatusPending,
		ETASec:      -1,
		OutputPath:  outputPath,
		StartedAt:   time.Now(),
	}

	s.tasksMutex.Lock()
	s.tasks[task.ID] = task
	s.tasksMutex.Unlock()
	return task
}

func (s *Service) setStatus(task *model.DownloadTask, status model.TaskStatus) {
	s.tasksMutex.Lock()
	task.Status = status
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)
}

// finish records the final status of a task
func (s *Service) finish(task *model.DownloadTask, err error) {
	s.tasksMutex.Lock()
	switch {
	case err == nil:
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
	case errors.Is(err, context.Canceled):
		task.Status = model.TaskStatusStopped
		task.LastError = err.Error()
	default:
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
}

// resolvePath places relative paths under the download directory
func (s *Service) resolvePath(path string) string {
	if filepath.IsAbs(path) || s.downloadDir == "" {
		return path
	}
	return filepath.Join(s.downloadDir, path)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	if s.onUpdate != nil {
		s.onUpdate(task)
	}
}

// generateTaskID generates a unique task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}

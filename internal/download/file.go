package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/model"
	"github.com/ytget/ytdlp/v2/client"
)

// HTTP client defaults
const (
	DefaultHTTPTimeout = 60 * time.Second
	DefaultHTTPRetries = 3
	DefaultUserAgent   = "media-downloader/1.0"
)

// File permissions
const (
	DefaultFilePermissions = 0644
)

// NewHTTPClient builds the retrying HTTP client used for plain file downloads
func NewHTTPClient(timeout time.Duration, retries int, userAgent string) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c := client.NewWith(client.Config{Timeout: timeout, Retries: retries, UserAgent: userAgent})
	return c.HTTPClient
}

// DownloadFile fetches url over HTTP and writes the body to savePath
func (s *Service) DownloadFile(ctx context.Context, url string, contentType model.ContentType, savePath string) (*model.DownloadTask, error) {
	logger := logging.FromContext(ctx)
	task := s.newTask(url, contentType, s.resolvePath(savePath))

	s.setStatus(task, model.TaskStatusDownloading)

	size, err := s.fetch(ctx, task)
	if err != nil {
		s.finish(task, err)
		logger.Error("error downloading file", "url", url, "err", err)
		return task, fmt.Errorf("%w: failed to download %s: %w", model.ErrDownload, contentType, err)
	}

	s.tasksMutex.Lock()
	task.FileSize = size
	s.tasksMutex.Unlock()
	s.finish(task, nil)

	logger.Info(fmt.Sprintf("downloaded %s", contentType), "path", task.OutputPath, "bytes", size)
	return task, nil
}

// fetch streams the response body into the task output path. A partial file
// is removed on failure.
func (s *Service) fetch(ctx context.Context, task *model.DownloadTask) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	out, err := os.OpenFile(task.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFilePermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", task.OutputPath, err)
	}

	counter := &progressWriter{total: resp.ContentLength, onWrite: func(written, total int64) {
		s.updateFileProgress(task, written, total)
	}}

	n, err := io.Copy(io.MultiWriter(out, counter), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(task.OutputPath)
		return 0, fmt.Errorf("failed to write %s: %w", task.OutputPath, err)
	}
	return n, nil
}

func (s *Service) updateFileProgress(task *model.DownloadTask, written, total int64) {
	s.tasksMutex.Lock()
	task.FileSize = written
	if total > 0 {
		task.Progress = float64(written) / float64(total)
		task.Percent = int(task.Progress * 100)
	}
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)
}

// progressWriter counts bytes flowing through io.Copy
type progressWriter struct {
	written int64
	total   int64
	onWrite func(written, total int64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if pw.onWrite != nil {
		pw.onWrite(pw.written, pw.total)
	}
	return len(p), nil
}

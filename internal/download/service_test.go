package download

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ytget/media-downloader/internal/model"
)

type fakeRunner struct {
	requests []StreamRequest
	errs     []error // returned in order, nil once exhausted
	written  string
	updates  []ytdlp.ProgressUpdate
}

func (f *fakeRunner) Run(ctx context.Context, req StreamRequest, progress func(ytdlp.ProgressUpdate)) (string, error) {
	f.requests = append(f.requests, req)
	for _, update := range f.updates {
		progress(update)
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.written, nil
}

func newTestService(runner StreamRunner) *Service {
	service := NewService("/tmp/downloads", nil)
	service.SetRunner(runner)
	service.SetRetryPolicy(DefaultMaxRetries, 0)
	return service
}

func TestNewService(t *testing.T) {
	service := NewService("/tmp", nil)

	if service.downloadDir != "/tmp" {
		t.Errorf("Expected downloadDir to be '/tmp', got '%s'", service.downloadDir)
	}

	if service.maxRetries != DefaultMaxRetries {
		t.Errorf("Expected maxRetries to be %d, got %d", DefaultMaxRetries, service.maxRetries)
	}

	if service.httpClient == nil {
		t.Error("Expected default HTTP client")
	}

	if len(service.tasks) != 0 {
		t.Errorf("Expected empty tasks map, got %d items", len(service.tasks))
	}
}

func TestDownloadVideo_Success(t *testing.T) {
	runner := &fakeRunner{}
	service := newTestService(runner)

	task, err := service.DownloadVideo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "test_video.mp4", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expectedPath := filepath.Join("/tmp/downloads", "test_video.mp4")
	if task.OutputPath != expectedPath {
		t.Errorf("Expected OutputPath to be '%s', got '%s'", expectedPath, task.OutputPath)
	}

	if task.Status != model.TaskStatusCompleted || task.Percent != 100 {
		t.Errorf("Expected completed task at 100%%, got %s at %d%%", task.Status, task.Percent)
	}

	if len(runner.requests) != 1 {
		t.Fatalf("Expected 1 runner call, got %d", len(runner.requests))
	}
	req := runner.requests[0]
	if req.Format != DefaultVideoFormat {
		t.Errorf("Expected default format '%s', got '%s'", DefaultVideoFormat, req.Format)
	}
	if req.AudioOnly {
		t.Error("Expected video request, got audio-only")
	}
}

func TestDownloadVideo_ReportedFilename(t *testing.T) {
	runner := &fakeRunner{written: "/tmp/downloads/video.mkv"}
	service := newTestService(runner)

	task, err := service.DownloadVideo(context.Background(), "https://youtube.com/watch?v=1", "video.mp4", "best")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.OutputPath != "/tmp/downloads/video.mkv" {
		t.Errorf("Expected yt-dlp reported path, got '%s'", task.OutputPath)
	}
	if runner.requests[0].Format != "best" {
		t.Errorf("Expected format 'best', got '%s'", runner.requests[0].Format)
	}
}

func TestDownloadVideo_RetriesOnce(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("transient")}}
	service := newTestService(runner)

	if _, err := service.DownloadVideo(context.Background(), "https://youtube.com/watch?v=1", "video.mp4", ""); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if len(runner.requests) != 2 {
		t.Errorf("Expected 2 attempts, got %d", len(runner.requests))
	}
}

func TestDownloadVideo_FailureIsLabelled(t *testing.T) {
	cause := errors.New("unsupported URL")
	runner := &fakeRunner{errs: []error{cause, cause}}
	service := newTestService(runner)

	task, err := service.DownloadVideo(context.Background(), "https://youtube.com/watch?v=1", "video.mp4", "")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if !errors.Is(err, model.ErrDownload) {
		t.Errorf("Expected ErrDownload, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be wrapped, got: %v", err)
	}
	if !strings.Contains(err.Error(), "failed to download video") {
		t.Errorf("Expected 'failed to download video' in message, got: %v", err)
	}
	if task.Status != model.TaskStatusError || task.LastError == "" {
		t.Errorf("Expected error status with message, got %s '%s'", task.Status, task.LastError)
	}
}

func TestDownloadVideo_Cancelled(t *testing.T) {
	runner := &fakeRunner{errs: []error{context.Canceled}}
	service := newTestService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, err := service.DownloadVideo(ctx, "https://youtube.com/watch?v=1", "video.mp4", "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if task.Status != model.TaskStatusStopped {
		t.Errorf("Expected status Stopped, got %s", task.Status)
	}
	if len(runner.requests) != 1 {
		t.Errorf("Expected no retry after cancellation, got %d attempts", len(runner.requests))
	}
}

func TestDownloadAudio(t *testing.T) {
	runner := &fakeRunner{}
	service := newTestService(runner)

	task, err := service.DownloadAudio(context.Background(), "https://soundcloud.com/artist/track", "audio.mp3")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ContentType != model.ContentAudio {
		t.Errorf("Expected content type audio, got %s", task.ContentType)
	}
	req := runner.requests[0]
	if !req.AudioOnly || req.AudioFormat != DefaultAudioFormat {
		t.Errorf("Expected audio-only %s request, got %+v", DefaultAudioFormat, req)
	}
	if want := filepath.Join("/tmp/downloads", "audio.%(ext)s"); req.OutputPath != want {
		t.Errorf("Expected output template %q, got %q", want, req.OutputPath)
	}
	if want := filepath.Join("/tmp/downloads", "audio.mp3"); task.OutputPath != want {
		t.Errorf("Expected output path %q, got %q", want, task.OutputPath)
	}
}

func TestDownloadAudio_IgnoresIntermediateFilename(t *testing.T) {
	runner := &fakeRunner{written: "/tmp/downloads/audio.webm"}
	service := newTestService(runner)

	task, err := service.DownloadAudio(context.Background(), "https://soundcloud.com/artist/track", "audio.mp3")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if want := filepath.Join("/tmp/downloads", "audio.mp3"); task.OutputPath != want {
		t.Errorf("Expected output path %q, got %q", want, task.OutputPath)
	}
}

func TestDownloadAudio_FailureIsLabelled(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("a"), errors.New("b")}}
	service := newTestService(runner)

	_, err := service.DownloadAudio(context.Background(), "https://soundcloud.com/artist/track", "audio.mp3")
	if !errors.Is(err, model.ErrDownload) {
		t.Errorf("Expected ErrDownload, got: %v", err)
	}
	if !strings.Contains(err.Error(), "failed to download audio") {
		t.Errorf("Expected 'failed to download audio' in message, got: %v", err)
	}
}

func TestUpdateTaskProgress(t *testing.T) {
	title := "Never Gonna Give You Up"
	runner := &fakeRunner{updates: []ytdlp.ProgressUpdate{{
		TotalBytes:      200,
		DownloadedBytes: 50,
		Started:         time.Now().Add(-time.Second),
		Info:            &ytdlp.ExtractedInfo{Title: &title},
	}}}
	service := newTestService(runner)

	var percents []int
	service.SetUpdateCallback(func(task *model.DownloadTask) {
		percents = append(percents, task.Percent)
	})

	task, err := service.DownloadVideo(context.Background(), "https://youtube.com/watch?v=1", "video.mp4", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.Title != title {
		t.Errorf("Expected title '%s', got '%s'", title, task.Title)
	}
	if task.Speed == "" {
		t.Error("Expected speed to be set")
	}

	found := false
	for _, p := range percents {
		if p == 25 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a 25%% progress update, got %v", percents)
	}
}

func TestGetTask(t *testing.T) {
	service := newTestService(&fakeRunner{})

	task, err := service.DownloadVideo(context.Background(), "https://youtube.com/watch?v=test", "video.mp4", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	retrievedTask, exists := service.GetTask(task.ID)
	if !exists {
		t.Error("Expected task to exist")
	}

	if retrievedTask.ID != task.ID {
		t.Errorf("Expected task ID to be '%s', got '%s'", task.ID, retrievedTask.ID)
	}

	_, exists = service.GetTask("non-existing-id")
	if exists {
		t.Error("Expected task to not exist")
	}

	if len(service.GetAllTasks()) != 1 {
		t.Errorf("Expected 1 task, got %d", len(service.GetAllTasks()))
	}
}

func TestResolvePath(t *testing.T) {
	service := NewService("/data", nil)

	tests := []struct {
		input    string
		expected string
	}{
		{"video.mp4", "/data/video.mp4"},
		{"/abs/video.mp4", "/abs/video.mp4"},
	}

	for _, test := range tests {
		result := service.resolvePath(test.input)
		if result != test.expected {
			t.Errorf("resolvePath(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}

	service.SetDownloadDirectory("")
	if got := service.resolvePath("video.mp4"); got != "video.mp4" {
		t.Errorf("Expected relative path to be kept, got %s", got)
	}
}

func TestGenerateTaskID(t *testing.T) {
	id1 := generateTaskID()
	id2 := generateTaskID()

	if id1 == id2 {
		t.Error("Expected different task IDs")
	}

	if !strings.HasPrefix(id1, TaskIDPrefix) {
		t.Errorf("Expected ID to start with '%s', got: %s", TaskIDPrefix, id1)
	}

	// Check UUID format (task- + 36 chars for UUID)
	if len(id1) != len(TaskIDPrefix)+36 {
		t.Errorf("Expected ID length %d, got %d for ID: %s", len(TaskIDPrefix)+36, len(id1), id1)
	}
}

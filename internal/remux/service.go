// Package remux muxes the audio track of the original download back into an
// inpainted video with ffmpeg.
package remux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/model"
)

// FFmpeg constants for encoding settings
const (
	// Video codec settings
	VideoCodec  = "libx264"
	VideoPreset = "medium"
	VideoCRF    = "23"

	// Audio codec settings
	AudioCodec   = "aac"
	AudioBitrate = "128k"

	// Container flags
	FastStartFlag = "+faststart"

	// Intermediate file suffix for the silent inpainted video
	SilentSuffix = "-silent"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
	TaskIDPrefix        = "remux-"
	OutputExtensionMP4  = ".mp4"
)

// Service handles audio restoration
type Service struct {
	ffmpeg     string
	ffprobe    string
	tasks      map[string]*model.RemuxTask
	tasksMutex sync.RWMutex
	onUpdate   func(*model.RemuxTask) // callback for console updates
}

// NewService creates a new remux service using ffmpeg and ffprobe from PATH
func NewService() *Service {
	return &Service{
		ffmpeg:  FFmpegCommand,
		ffprobe: FFprobeCommand,
		tasks:   make(map[string]*model.RemuxTask),
	}
}

// SetExecutables overrides the ffmpeg and ffprobe binaries
func (s *Service) SetExecutables(ffmpeg, ffprobe string) {
	if ffmpeg != "" {
		s.ffmpeg = ffmpeg
	}
	if ffprobe != "" {
		s.ffprobe = ffprobe
	}
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.RemuxTask)) {
	s.onUpdate = callback
}

// Available reports whether ffmpeg can be found
func (s *Service) Available() bool {
	_, err := exec.LookPath(s.ffmpeg)
	return err == nil
}

// GetTask returns a remux task by ID
func (s *Service) GetTask(taskID string) (*model.RemuxTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[taskID]
	return task, exists
}

// Remux writes outputPath with the video stream of videoPath and the audio
// stream of audioPath, if it has one. A partial output is removed on failure.
func (s *Service) Remux(ctx context.Context, videoPath, audioPath, outputPath string) (*model.RemuxTask, error) {
	logger := logging.FromContext(ctx)

	for _, path := range []string{videoPath, audioPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: input file does not exist: %s", model.ErrFileNotFound, path)
		}
	}

	task := &model.RemuxTask{
		ID:         generateTaskID(),
		VideoPath:  videoPath,
		AudioPath:  audioPath,
		OutputPath: outputPath,
		Status:     model.TaskStatusStarting,
		StartedAt:  time.Now(),
	}

	s.tasksMutex.Lock()
	s.tasks[task.ID] = task
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	// Duration only drives progress; a failed probe is not fatal
	duration, err := s.getVideoDuration(ctx, videoPath)
	if err != nil {
		logger.Debug("failed to get video duration", "path", videoPath, "err", err)
	}

	s.tasksMutex.Lock()
	task.Status = model.TaskStatusProcessing
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	args := s.BuildFFmpegArgs(videoPath, audioPath, outputPath)
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return task, s.setTaskError(task, fmt.Errorf("failed to create stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return task, s.setTaskError(task, fmt.Errorf("failed to start ffmpeg: %w", err))
	}

	// stderr must be drained before Wait
	s.monitorProgress(stderr, task, duration)
	err = cmd.Wait()

	s.tasksMutex.Lock()
	switch {
	case ctx.Err() != nil:
		task.Status = model.TaskStatusStopped
		task.LastError = ctx.Err().Error()
		err = ctx.Err()
	case err != nil:
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
	default:
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	if err != nil {
		os.Remove(outputPath)
		return task, fmt.Errorf("ffmpeg failed: %w", err)
	}

	logger.Info("audio restored", "output", outputPath)
	return task, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func (s *Service) BuildFFmpegArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", videoPath, // Inpainted video
		"-i", audioPath, // Original download
		"-map", "0:v:0", // Video from the first input
		"-map", "1:a?", // Audio from the second input, if any
		"-c:v", VideoCodec, // Video codec
		"-preset", VideoPreset, // Encoding preset
		"-crf", VideoCRF, // Constant rate factor
		"-c:a", AudioCodec, // Audio codec
		"-b:a", AudioBitrate, // Audio bitrate
		"-shortest",                // Stop at the shorter stream
		"-movflags", FastStartFlag, // MP4 optimization
		"-progress", ProgressPipeTarget, // Progress to stderr
		"-nostats", // No stats output
		outputPath, // Output file
	}
}

// getVideoDuration gets the duration of a video file using ffprobe
func (s *Service) getVideoDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobe, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// monitorProgress monitors ffmpeg progress output
func (s *Service) monitorProgress(stderr io.Reader, task *model.RemuxTask, totalDuration float64) {
	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Parse progress line: out_time_us=123456
		if !strings.HasPrefix(line, ProgressTimePrefix) || totalDuration <= 0 {
			continue
		}

		timeMicroseconds, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
		if err != nil {
			continue
		}

		progress := (float64(timeMicroseconds) / 1000000.0) / totalDuration
		if progress > 1.0 {
			progress = 1.0
		}

		s.tasksMutex.Lock()
		task.Progress = progress
		task.Percent = int(progress * 100)
		s.tasksMutex.Unlock()

		s.notifyUpdate(task)
	}
}

// setTaskError sets an error state for a task
func (s *Service) setTaskError(task *model.RemuxTask, err error) error {
	s.tasksMutex.Lock()
	task.Status = model.TaskStatusError
	task.LastError = err.Error()
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
	return err
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.RemuxTask) {
	if s.onUpdate != nil {
		s.onUpdate(task)
	}
}

// SilentPath returns the intermediate path the inpainter writes before audio
// is restored into outputPath
func SilentPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	baseName := strings.TrimSuffix(outputPath, ext)
	return baseName + SilentSuffix + OutputExtensionMP4
}

// generateTaskID generates a unique task ID using UUID v7 for time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}

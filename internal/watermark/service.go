package watermark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/model"
)

// TaskIDPrefix prefixes watermark task ids
const TaskIDPrefix = "watermark-"

// Service removes watermarks using an Inpainter backend
type Service struct {
	inpainter  Inpainter
	tasks      map[string]*model.WatermarkTask
	tasksMutex sync.RWMutex
	onUpdate   func(*model.WatermarkTask) // callback for console updates
}

// NewService creates a new watermark service on top of inpainter
func NewService(inpainter Inpainter) *Service {
	return &Service{
		inpainter: inpainter,
		tasks:     make(map[string]*model.WatermarkTask),
	}
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.WatermarkTask)) {
	s.onUpdate = callback
}

// GetTask returns a watermark task by ID
func (s *Service) GetTask(taskID string) (*model.WatermarkTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[taskID]
	return task, exists
}

// Remove inpaints regions on every frame of inputPath and writes outputPath.
// A nil regions slice selects DefaultRegions and a non-positive radius
// selects DefaultInpaintRadius. Every failure wraps model.ErrWatermarkRemoval;
// an unreadable input additionally wraps model.ErrFileNotFound.
func (s *Service) Remove(ctx context.Context, inputPath, outputPath string, regions []Region, radius float64) (*model.WatermarkTask, error) {
	logger := logging.FromContext(ctx)

	if regions == nil {
		regions = DefaultRegions
	}
	if radius <= 0 {
		radius = DefaultInpaintRadius
	}

	task := &model.WatermarkTask{
		ID:         generateTaskID(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     model.TaskStatusPending,
		StartedAt:  time.Now(),
	}

	s.tasksMutex.Lock()
	s.tasks[task.ID] = task
	s.tasksMutex.Unlock()

	if _, err := os.Stat(inputPath); err != nil {
		err = fmt.Errorf("%w: unable to open video file: %s", model.ErrFileNotFound, inputPath)
		return task, s.fail(ctx, task, err)
	}

	s.setStatus(task, model.TaskStatusProcessing)

	job := InpaintJob{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Mask: func(width, height int) []image.Rectangle {
			return MaskRects(regions, width, height)
		},
		Radius: radius,
		Progress: func(frames, total int) {
			s.tasksMutex.Lock()
			task.SetFrameProgress(frames, total)
			s.tasksMutex.Unlock()
			s.notifyUpdate(task)
		},
	}

	if err := s.inpainter.Inpaint(ctx, job); err != nil {
		os.Remove(outputPath)
		return task, s.fail(ctx, task, err)
	}

	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		os.Remove(outputPath)
		return task, s.fail(ctx, task, fmt.Errorf("no output written to %s", outputPath))
	}

	s.tasksMutex.Lock()
	task.Status = model.TaskStatusCompleted
	task.Progress = 1.0
	task.Percent = 100
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	logger.Info("watermark removed", "output", outputPath, "frames", task.Frames)
	return task, nil
}

// fail records err on the task and returns it labelled as a removal error
func (s *Service) fail(ctx context.Context, task *model.WatermarkTask, err error) error {
	logging.FromContext(ctx).Error("error removing watermark", "input", task.InputPath, "err", err)

	s.tasksMutex.Lock()
	if errors.Is(err, context.Canceled) {
		task.Status = model.TaskStatusStopped
	} else {
		task.Status = model.TaskStatusError
	}
	task.LastError = err.Error()
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	return fmt.Errorf("%w: failed to remove watermark: %w", model.ErrWatermarkRemoval, err)
}

func (s *Service) setStatus(task *model.WatermarkTask, status model.TaskStatus) {
	s.tasksMutex.Lock()
	task.Status = status
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.WatermarkTask) {
	if s.onUpdate != nil {
		s.onUpdate(task)
	}
}

// generateTaskID generates a unique task ID using UUID v7
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}

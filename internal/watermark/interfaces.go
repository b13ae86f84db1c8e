package watermark

import (
	"context"
	"image"

	"github.com/ytget/media-downloader/internal/model"
)

// FrameProgress is called after each written frame. total is 0 when the
// container does not report a frame count.
type FrameProgress func(frames, total int)

// InpaintJob describes one inpainting pass over a video file
type InpaintJob struct {
	InputPath  string
	OutputPath string
	// Mask computes the clipped mask rectangles for a frame size
	Mask     func(width, height int) []image.Rectangle
	Radius   float64
	Progress FrameProgress
}

// Inpainter reads every frame of a video, inpaints the masked area and
// writes the result. Implementations return an error wrapping
// model.ErrFileNotFound when the input cannot be opened.
type Inpainter interface {
	Inpaint(ctx context.Context, job InpaintJob) error
}

// Remover defines the interface for the watermark service.
type Remover interface {
	SetUpdateCallback(func(*model.WatermarkTask))
	Remove(ctx context.Context, inputPath, outputPath string, regions []Region, radius float64) (*model.WatermarkTask, error)
}

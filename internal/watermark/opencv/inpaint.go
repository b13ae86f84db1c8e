// Package opencv implements watermark.Inpainter on top of gocv (OpenCV).
package opencv

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ytget/media-downloader/internal/model"
	"github.com/ytget/media-downloader/internal/watermark"
)

// Codec and mask constants
const (
	FourCC    = "mp4v"
	MaskValue = 255
)

var maskColor = color.RGBA{R: MaskValue, G: MaskValue, B: MaskValue, A: 0}

// Inpainter runs Telea inpainting frame by frame
type Inpainter struct{}

var _ watermark.Inpainter = (*Inpainter)(nil)

// New returns an OpenCV backed inpainter
func New() *Inpainter {
	return &Inpainter{}
}

// Inpaint implements watermark.Inpainter
func (in *Inpainter) Inpaint(ctx context.Context, job watermark.InpaintJob) error {
	capture, err := gocv.VideoCaptureFile(job.InputPath)
	if capture != nil {
		defer capture.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: unable to open video file: %s: %v", model.ErrFileNotFound, job.InputPath, err)
	}

	if !capture.IsOpened() {
		return fmt.Errorf("%w: unable to open video file: %s", model.ErrFileNotFound, job.InputPath)
	}

	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))
	fps := capture.Get(gocv.VideoCaptureFPS)
	total := int(capture.Get(gocv.VideoCaptureFrameCount))
	if total < 0 {
		total = 0
	}

	writer, err := gocv.VideoWriterFile(job.OutputPath, FourCC, fps, width, height, true)
	if err != nil {
		return fmt.Errorf("failed to create video writer for %s: %w", job.OutputPath, err)
	}
	defer writer.Close()

	// Write reports no errors, so an unopened writer would silently drop frames
	if !writer.IsOpened() {
		return fmt.Errorf("failed to open video writer for %s", job.OutputPath)
	}

	frame := gocv.NewMat()
	defer frame.Close()
	inpainted := gocv.NewMat()
	defer inpainted.Close()

	var mask gocv.Mat
	haveMask := false
	defer func() {
		if haveMask {
			mask.Close()
		}
	}()

	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}

		if !haveMask || mask.Rows() != frame.Rows() || mask.Cols() != frame.Cols() {
			if haveMask {
				mask.Close()
			}
			mask = buildMask(job, frame.Cols(), frame.Rows())
			haveMask = true
		}

		gocv.Inpaint(frame, mask, &inpainted, float32(job.Radius), gocv.Telea)

		if err := writer.Write(inpainted); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", frames+1, err)
		}

		frames++
		if job.Progress != nil {
			job.Progress(frames, total)
		}
	}

	if frames == 0 {
		return fmt.Errorf("no frames decoded from %s", job.InputPath)
	}
	return nil
}

// buildMask returns a zeroed single channel mask with the job rectangles filled
func buildMask(job watermark.InpaintJob, width, height int) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	var rects []image.Rectangle
	if job.Mask != nil {
		rects = job.Mask(width, height)
	}
	for _, r := range rects {
		gocv.Rectangle(&mask, r, maskColor, -1)
	}
	return mask
}

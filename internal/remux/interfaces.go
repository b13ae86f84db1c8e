package remux

import (
	"context"

	"github.com/ytget/media-downloader/internal/model"
)

// Remuxer defines the interface for the audio restoration service.
type Remuxer interface {
	SetUpdateCallback(func(*model.RemuxTask))
	Available() bool
	Remux(ctx context.Context, videoPath, audioPath, outputPath string) (*model.RemuxTask, error)
}

package download

import (
	"context"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ytget/media-downloader/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	SetUpdateCallback(func(*model.DownloadTask))
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask

	// DownloadVideo fetches a video with yt-dlp using format as selector
	DownloadVideo(ctx context.Context, url, savePath, format string) (*model.DownloadTask, error)

	// DownloadAudio fetches the audio track with yt-dlp, converted to mp3
	DownloadAudio(ctx context.Context, url, savePath string) (*model.DownloadTask, error)

	// DownloadFile fetches url over HTTP into savePath
	DownloadFile(ctx context.Context, url string, contentType model.ContentType, savePath string) (*model.DownloadTask, error)
}

// StreamRequest describes one yt-dlp invocation
type StreamRequest struct {
	URL         string
	OutputPath  string
	Format      string
	AudioOnly   bool
	AudioFormat string
}

// StreamRunner executes yt-dlp. It returns the path yt-dlp reported for the
// written file, or an empty string when none was reported.
type StreamRunner interface {
	Run(ctx context.Context, req StreamRequest, progress func(ytdlp.ProgressUpdate)) (string, error)
}

// Package bootstrap wires the concrete backends (yt-dlp, OpenCV, ffmpeg, S3)
// into the application pipeline and runs the command line.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/ytget/media-downloader/internal/app"
	"github.com/ytget/media-downloader/internal/config"
	"github.com/ytget/media-downloader/internal/download"
	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/platform"
	"github.com/ytget/media-downloader/internal/remux"
	"github.com/ytget/media-downloader/internal/storage"
	"github.com/ytget/media-downloader/internal/watermark"
	"github.com/ytget/media-downloader/internal/watermark/opencv"
)

// Main runs the command line and returns the process exit code
func Main(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &app.CLI{
		Version: version,
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Build:   Build,
		Install: download.Install,
	}
	if err := c.NewApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// Build creates the services described by cfg
func Build(ctx context.Context, cfg *config.Config, out io.Writer) (*app.Pipeline, error) {
	logger := logging.FromContext(ctx)

	if err := platform.CreateDirectoryIfNotExists(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to ensure output dir: %w", err)
	}

	progress := app.NewProgressPrinter(out)

	httpClient := download.NewHTTPClient(cfg.HTTPTimeout, cfg.HTTPRetries, cfg.UserAgent)
	downloadSvc := download.NewService(cfg.OutputDir, httpClient)
	downloadSvc.SetUpdateCallback(progress.Download)

	watermarkSvc := watermark.NewService(opencv.New())
	watermarkSvc.SetUpdateCallback(progress.Watermark)

	remuxSvc := remux.NewService()
	remuxSvc.SetExecutables(cfg.FFmpegPath, cfg.FFprobePath)
	remuxSvc.SetUpdateCallback(progress.Remux)
	if !cfg.SkipAudioRestore && !remuxSvc.Available() {
		logger.Warn("ffmpeg not found, cleaned video will have no audio")
	}

	pipeline := &app.Pipeline{
		Config:     cfg,
		Downloader: downloadSvc,
		Remover:    watermarkSvc,
		Remuxer:    remuxSvc,
		Out:        out,
	}

	if cfg.UploadBucket != "" {
		sess, err := session.NewSession()
		if err != nil {
			return nil, fmt.Errorf("creating AWS session: %w", err)
		}
		pipeline.Uploader = &storage.Uploader{
			Store:  &storage.S3ObjectStore{Client: s3.New(sess)},
			Bucket: cfg.UploadBucket,
			Prefix: cfg.UploadPrefix,
		}
	}

	return pipeline, nil
}

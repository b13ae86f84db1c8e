// Package app orchestrates one run: validate the URL, classify it, download
// it and, for video, remove the watermark.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ytget/media-downloader/internal/config"
	"github.com/ytget/media-downloader/internal/detect"
	"github.com/ytget/media-downloader/internal/download"
	"github.com/ytget/media-downloader/internal/logging"
	"github.com/ytget/media-downloader/internal/model"
	"github.com/ytget/media-downloader/internal/platform"
	"github.com/ytget/media-downloader/internal/remux"
	"github.com/ytget/media-downloader/internal/storage"
	"github.com/ytget/media-downloader/internal/validate"
	"github.com/ytget/media-downloader/internal/watermark"
)

// Result describes what a run produced
type Result struct {
	ContentType model.ContentType
	Artifacts   []string
	Uploaded    []string
}

// Pipeline wires the services used by a run. Remuxer and Uploader are
// optional.
type Pipeline struct {
	Config     *config.Config
	Downloader download.Downloader
	Remover    watermark.Remover
	Remuxer    remux.Remuxer
	Uploader   *storage.Uploader
	Out        io.Writer
}

// Run processes rawURL. An untrusted URL returns an error wrapping
// model.ErrUntrustedSource before anything is downloaded; an unknown
// content type is reported and returns a nil error.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (*Result, error) {
	if err := validate.ValidateURL(rawURL, p.Config.TrustedDomains); err != nil {
		return nil, err
	}

	result := &Result{ContentType: detect.DetectContentType(rawURL)}
	logging.FromContext(ctx).Debug("detected content type", "url", rawURL, "type", result.ContentType)

	var err error
	switch {
	case result.ContentType == model.ContentVideo:
		p.printf("Detected as video. Downloading...\n")
		err = p.runVideo(ctx, rawURL, result)
	case result.ContentType == model.ContentAudio:
		p.printf("Detected as audio. Downloading audio...\n")
		err = p.runAudio(ctx, rawURL, result)
	case result.ContentType.IsFile():
		p.printf("Detected as %s. Downloading...\n", result.ContentType)
		err = p.runFile(ctx, rawURL, result)
	default:
		p.printf("Content type could not be detected. Unsupported URL.\n")
		return result, nil
	}
	if err != nil {
		return result, err
	}

	if err := p.upload(ctx, rawURL, result); err != nil {
		return result, err
	}

	if p.Config.Reveal && len(result.Artifacts) > 0 {
		last := result.Artifacts[len(result.Artifacts)-1]
		if err := platform.OpenFileInManager(last); err != nil {
			logging.FromContext(ctx).Warn("failed to reveal file", "path", last, "err", err)
		}
	}
	return result, nil
}

func (p *Pipeline) runVideo(ctx context.Context, rawURL string, result *Result) error {
	task, err := p.Downloader.DownloadVideo(ctx, rawURL, p.Config.VideoFile, p.Config.Format)
	if err != nil {
		return err
	}

	downloaded := task.OutputPath
	if found, err := platform.FindMediaFile(downloaded); err == nil {
		downloaded = found
	}
	result.Artifacts = append(result.Artifacts, downloaded)
	p.printf("Video downloaded to %s\n", downloaded)

	if p.Config.SkipWatermark {
		return nil
	}

	p.printf("Checking and removing watermark if any...\n")
	final := p.outputPath(p.Config.CleanedVideoFile)

	restore := !p.Config.SkipAudioRestore && p.Remuxer != nil && p.Remuxer.Available()
	target := final
	if restore {
		target = remux.SilentPath(final)
	}

	if _, err := p.Remover.Remove(ctx, downloaded, target, []watermark.Region(p.Config.Regions), p.Config.InpaintRadius); err != nil {
		return err
	}

	if restore {
		if err := p.restoreAudio(ctx, target, downloaded, final); err != nil {
			return err
		}
	}

	result.Artifacts = append(result.Artifacts, final)
	p.printf("Watermark removed successfully. Saved at %s\n", final)
	return nil
}

// restoreAudio muxes the original audio into final. Failure keeps the
// silent video under the final name, except on cancellation.
func (p *Pipeline) restoreAudio(ctx context.Context, silent, original, final string) error {
	logger := logging.FromContext(ctx)

	_, err := p.Remuxer.Remux(ctx, silent, original, final)
	if err == nil {
		os.Remove(silent)
		return nil
	}

	if ctx.Err() != nil {
		os.Remove(silent)
		return fmt.Errorf("%w: failed to remove watermark: %w", model.ErrWatermarkRemoval, ctx.Err())
	}

	logger.Warn("audio restore failed, keeping silent video", "err", err)
	if err := os.Rename(silent, final); err != nil {
		return fmt.Errorf("%w: failed to remove watermark: %w", model.ErrWatermarkRemoval, err)
	}
	return nil
}

func (p *Pipeline) runAudio(ctx context.Context, rawURL string, result *Result) error {
	task, err := p.Downloader.DownloadAudio(ctx, rawURL, p.Config.AudioFile)
	if err != nil {
		return err
	}
	result.Artifacts = append(result.Artifacts, task.OutputPath)
	p.printf("Audio downloaded to %s\n", task.OutputPath)
	return nil
}

func (p *Pipeline) runFile(ctx context.Context, rawURL string, result *Result) error {
	name := fmt.Sprintf("%s.%s", p.Config.FilePrefix, result.ContentType)
	task, err := p.Downloader.DownloadFile(ctx, rawURL, result.ContentType, name)
	if err != nil {
		return err
	}
	result.Artifacts = append(result.Artifacts, task.OutputPath)
	p.printf("Downloaded %s to %s\n", result.ContentType, task.OutputPath)
	return nil
}

func (p *Pipeline) upload(ctx context.Context, rawURL string, result *Result) error {
	if p.Uploader == nil {
		return nil
	}
	for _, artifact := range result.Artifacts {
		key, err := p.Uploader.Upload(ctx, rawURL, artifact)
		if err != nil {
			return err
		}
		result.Uploaded = append(result.Uploaded, key)
	}
	return nil
}

// outputPath places name under the configured output directory
func (p *Pipeline) outputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Config.OutputDir, name)
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

// IsInvalidURL reports whether err came from URL validation
func IsInvalidURL(err error) bool {
	return errors.Is(err, model.ErrUntrustedSource)
}

package download

import (
	"context"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// ProgressInterval is how often yt-dlp progress is reported
const ProgressInterval = 500 * time.Millisecond

// YTDLPRunner runs the yt-dlp executable
type YTDLPRunner struct{}

// Install makes sure a yt-dlp executable is available, downloading one into
// the go-ytdlp cache when it is missing
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// Run implements StreamRunner
func (r YTDLPRunner) Run(ctx context.Context, req StreamRequest, progress func(ytdlp.ProgressUpdate)) (string, error) {
	dl := r.command(req)
	if progress != nil {
		dl.ProgressFunc(ProgressInterval, progress)
	}

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		return "", err
	}
	return reportedFilename(result), nil
}

// command builds the yt-dlp invocation for req. --print-json makes yt-dlp
// emit the info of each finished download, which carries the final filename.
func (YTDLPRunner) command(req StreamRequest) *ytdlp.Command {
	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		PrintJSON().
		Output(req.OutputPath)

	if req.AudioOnly {
		return dl.ExtractAudio().AudioFormat(req.AudioFormat)
	}
	return dl.Format(req.Format).MergeOutputFormat(MergeFormatMP4)
}

// reportedFilename returns the filename in the first extracted info of
// result, or "" when yt-dlp reported none
func reportedFilename(result *ytdlp.Result) string {
	if result == nil {
		return ""
	}
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 {
		return ""
	}
	switch {
	case info[0].Filename != nil:
		return *info[0].Filename
	case info[0].AltFilename != nil:
		return *info[0].AltFilename
	}
	return ""
}
